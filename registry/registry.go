// Package registry holds the static lookup tables mapping well known C
// and C++ type names to the Cython modules that declare them, plus the
// reserved word set used for name escaping. Pure lookups, no I/O.
package registry

type stdlibEntry struct {
	module string
	header string
}

var stdlibTypes = map[string]stdlibEntry{
	"int8_t":    {"libc.stdint", "stdint.h"},
	"int16_t":   {"libc.stdint", "stdint.h"},
	"int32_t":   {"libc.stdint", "stdint.h"},
	"int64_t":   {"libc.stdint", "stdint.h"},
	"uint8_t":   {"libc.stdint", "stdint.h"},
	"uint16_t":  {"libc.stdint", "stdint.h"},
	"uint32_t":  {"libc.stdint", "stdint.h"},
	"uint64_t":  {"libc.stdint", "stdint.h"},
	"intptr_t":  {"libc.stdint", "stdint.h"},
	"uintptr_t": {"libc.stdint", "stdint.h"},
	"intmax_t":  {"libc.stdint", "stdint.h"},
	"uintmax_t": {"libc.stdint", "stdint.h"},

	"size_t":    {"libc.stddef", "stddef.h"},
	"ptrdiff_t": {"libc.stddef", "stddef.h"},
	"wchar_t":   {"libc.stddef", "stddef.h"},

	"FILE":   {"libc.stdio", "stdio.h"},
	"fpos_t": {"libc.stdio", "stdio.h"},

	"div_t":  {"libc.stdlib", "stdlib.h"},
	"ldiv_t": {"libc.stdlib", "stdlib.h"},

	"time_t":  {"libc.time", "time.h"},
	"clock_t": {"libc.time", "time.h"},
	"tm":      {"libc.time", "time.h"},

	"jmp_buf":      {"libc.setjmp", "setjmp.h"},
	"sig_atomic_t": {"libc.signal", "signal.h"},
	"locale_t":     {"libc.locale", "locale.h"},
}

var cppTypes = map[string]string{
	"bool": "libcpp",

	"string":  "libcpp.string",
	"wstring": "libcpp.string",

	"vector":       "libcpp.vector",
	"list":         "libcpp.list",
	"forward_list": "libcpp.forward_list",
	"deque":        "libcpp.deque",

	"map":      "libcpp.map",
	"multimap": "libcpp.map",

	"unordered_map":      "libcpp.unordered_map",
	"unordered_multimap": "libcpp.unordered_map",

	"set":      "libcpp.set",
	"multiset": "libcpp.set",

	"unordered_set":      "libcpp.unordered_set",
	"unordered_multiset": "libcpp.unordered_set",

	"pair": "libcpp.utility",

	"queue":          "libcpp.queue",
	"priority_queue": "libcpp.queue",
	"stack":          "libcpp.stack",

	"shared_ptr": "libcpp.memory",
	"unique_ptr": "libcpp.memory",
	"weak_ptr":   "libcpp.memory",

	"complex":  "libcpp.complex",
	"optional": "libcpp.optional",
	"function": "libcpp.functional",
	"atomic":   "libcpp.atomic",
}

// stubTypes covers the POSIX pxd stubs bundled with Cython.
var stubTypes = map[string]string{
	"pid_t":       "posix.types",
	"uid_t":       "posix.types",
	"gid_t":       "posix.types",
	"off_t":       "posix.types",
	"mode_t":      "posix.types",
	"ssize_t":     "posix.types",
	"dev_t":       "posix.types",
	"ino_t":       "posix.types",
	"nlink_t":     "posix.types",
	"blkcnt_t":    "posix.types",
	"blksize_t":   "posix.types",
	"suseconds_t": "posix.types",

	"timeval":    "posix.time",
	"timespec":   "posix.time",
	"timezone":   "posix.time",
	"clockid_t":  "posix.time",
	"timer_t":    "posix.time",
	"itimerspec": "posix.time",

	"stat": "posix.stat",

	"DIR":    "posix.dirent",
	"dirent": "posix.dirent",

	"sigset_t":  "posix.signal",
	"sigaction": "posix.signal",
	"siginfo_t": "posix.signal",

	"iovec": "posix.uio",
}

// builtinRenames maps C spellings onto Cython built-in type names that
// need no cimport. C front ends spell the stdbool.h bool as _Bool; the
// C++ bool spelling still resolves through the libcpp import.
var builtinRenames = map[string]string{
	"_Bool": "bint",
}

// BuiltinRename returns the Cython built-in spelling for a C type name.
func BuiltinRename(name string) (string, bool) {
	r, ok := builtinRenames[name]
	return r, ok
}

// StdlibModule returns the libc cimport module and originating C header
// for a well known C standard library type name.
func StdlibModule(name string) (module, header string, ok bool) {
	e, ok := stdlibTypes[name]
	return e.module, e.header, ok
}

// CppModule returns the libcpp cimport module for a C++ standard library
// type name.
func CppModule(name string) (string, bool) {
	m, ok := cppTypes[name]
	return m, ok
}

// StubModule returns the bundled stub module declaring name.
func StubModule(name string) (string, bool) {
	m, ok := stubTypes[name]
	return m, ok
}

var reservedWords = map[string]bool{
	"False": true, "None": true, "True": true,
	"and": true, "as": true, "assert": true, "async": true, "await": true,
	"break": true, "class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true,
	"pass": true, "raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true,

	// Cython-level extras that break declaration syntax.
	"cdef": true, "cpdef": true, "ctypedef": true, "cimport": true,
	"include": true, "property": true, "DEF": true, "IF": true,
}

// IsReservedWord reports whether name collides with a Python or Cython
// keyword and needs escaping in generated declarations.
func IsReservedWord(name string) bool {
	return reservedWords[name]
}
