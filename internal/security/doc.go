// Package security confines file access to the lockvault data directory.
//
// Every path is validated lexically (relative, local, no ..) and then opened
// through os.Root, so symlinks inside the data directory cannot point an
// operation outside it either.
package security
