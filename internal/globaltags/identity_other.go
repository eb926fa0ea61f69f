//go:build !unix

package globaltags

// FileIdentity falls back to PathIdentity where inode numbers are not
// available.
func FileIdentity(path string) (string, error) {
	return PathIdentity(path)
}
