package reference

import (
	"errors"
	"fmt"
)

// DefaultMinStories — минимальный размер снимка, которым можно заменить сохранённый.
const DefaultMinStories = 30

// ErrSnapshotRejected возвращается, если новый снимок хуже сохранённого.
var ErrSnapshotRejected = errors.New("эталонный список отклонён")

// CheckReplacement решает, можно ли заменить сохранённый снимок новым.
func CheckReplacement(existing, incoming, minStories int) error {
	if minStories <= 0 {
		minStories = DefaultMinStories
	}
	if incoming == 0 {
		return fmt.Errorf("%w: новый список пуст", ErrSnapshotRejected)
	}
	if incoming < minStories {
		return fmt.Errorf("%w: %d сюжетов, нужно не меньше %d", ErrSnapshotRejected, incoming, minStories)
	}
	if existing > 0 && float64(incoming) < float64(existing)*0.5 {
		return fmt.Errorf("%w: %d сюжетов меньше половины сохранённых %d", ErrSnapshotRejected, incoming, existing)
	}
	return nil
}
