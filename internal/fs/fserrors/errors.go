// Package fserrors defines the filesystem's negative FSE_* error codes
// (spec §6/§7: "syscall-local errors: return a negative FSE_* code to the
// caller; the caller decides").
package fserrors

import "fmt"

// Code is a negative error code returned by a filesystem syscall, or
// Ok (0) on success.
type Code int32

// Error renders the code alongside its symbolic name for diagnostics.
func (c Code) Error() string {
	if name, ok := names[c]; ok {
		return fmt.Sprintf("fserrors: %s (%d)", name, int32(c))
	}
	return fmt.Sprintf("fserrors: unknown code %d", int32(c))
}

// Codes named exactly per spec §6's error-code list, so call sites read
// fserrors.NotExist, fserrors.Full, etc.
const (
	Ok              Code = 0
	Error           Code = -1
	NoMoreInodes    Code = -2
	Full            Code = -3
	InodeTableFull  Code = -4
	NotExist        Code = -5
	InvalidMode     Code = -6
	InvalidName     Code = -7
	DirIsFile       Code = -8
	EOF             Code = -9
)

var names = map[Code]string{
	Ok:             "FSE_OK",
	Error:          "FSE_ERROR",
	NoMoreInodes:   "FSE_NOMOREINODES",
	Full:           "FSE_FULL",
	InodeTableFull: "FSE_INODETABLEFULL",
	NotExist:       "FSE_NOTEXIST",
	InvalidMode:    "FSE_INVALIDMODE",
	InvalidName:    "FSE_INVALIDNAME",
	DirIsFile:      "FSE_DIRISFILE",
	EOF:            "FSE_EOF",
}
