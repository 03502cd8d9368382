package main

import (
	"bytes"

	"github.com/sparkling-lang/sparkling/pkg/bytecode"
)

func bytecodeDisasm(proto *bytecode.FuncProto) string {
	var buf bytes.Buffer
	bytecode.Disassemble(&buf, proto)
	return buf.String()
}
