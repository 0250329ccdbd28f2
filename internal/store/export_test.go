package store

// Cheap scrypt costs keep the test suite fast.
func init() {
	scryptParams.N = 1 << 10
}

var WriteFile = writeFile
