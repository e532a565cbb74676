//go:build !darwin

package main

/*
#include <stddef.h>
*/
import "C"

import (
	"unsafe"

	"github.com/nicovank/litterer/internal/interpose"
)

//export reallocarray
func reallocarray(ptr unsafe.Pointer, n, size C.size_t) unsafe.Pointer {
	return interpose.RealReallocarray(ptr, uintptr(n), uintptr(size))
}
