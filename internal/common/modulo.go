// Package common holds small helpers shared by the selection and storage layers.
package common

// PositiveModulo returns value mod size normalized into [0, size).
// A non-positive size always yields 0.
func PositiveModulo(value, size int) int {
	if size <= 0 {
		return 0
	}
	mod := value % size
	if mod < 0 {
		mod += size
	}
	return mod
}
