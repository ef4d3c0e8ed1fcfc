//go:build !windows

package mount

// IsElevated always reports true off Windows: there is no raw-volume
// privilege model to check, and these builds only exist to run this
// module's tests against fakes.
func IsElevated() (bool, error) {
	return true, nil
}
