package hsm

import (
	"reflect"
	"runtime"
	"strings"
)

// invocationInfo describes a callable for diagnostics and reflection: a
// caller-supplied description when one is given, falling back to the name
// it was declared with, extracted via runtime.FuncForPC.
type invocationInfo struct {
	Method      string
	Description string
}

func newInvocationInfo(fn any, description string) invocationInfo {
	name := funcName(fn)
	return invocationInfo{Method: name, Description: description}
}

func funcName(fn any) string {
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	parts := strings.Split(name, ".")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func (i invocationInfo) String() string {
	if i.Description != "" {
		return i.Description
	}
	if i.Method != "" {
		return i.Method
	}
	return "<unnamed>"
}
