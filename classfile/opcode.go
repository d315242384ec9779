package classfile

import "fmt"

type Opcode uint8

const (
	OpNop             Opcode = 0
	OpAconstNull      Opcode = 1
	OpIconstM1        Opcode = 2
	OpIconst0         Opcode = 3
	OpIconst1         Opcode = 4
	OpIconst2         Opcode = 5
	OpIconst3         Opcode = 6
	OpIconst4         Opcode = 7
	OpIconst5         Opcode = 8
	OpLconst0         Opcode = 9
	OpLconst1         Opcode = 10
	OpFconst0         Opcode = 11
	OpFconst1         Opcode = 12
	OpFconst2         Opcode = 13
	OpDconst0         Opcode = 14
	OpDconst1         Opcode = 15
	OpBipush          Opcode = 16
	OpSipush          Opcode = 17
	OpLdc             Opcode = 18
	OpLdcW            Opcode = 19
	OpLdc2W           Opcode = 20
	OpIload           Opcode = 21
	OpLload           Opcode = 22
	OpFload           Opcode = 23
	OpDload           Opcode = 24
	OpAload           Opcode = 25
	OpIload0          Opcode = 26
	OpIload1          Opcode = 27
	OpIload2          Opcode = 28
	OpIload3          Opcode = 29
	OpLload0          Opcode = 30
	OpLload1          Opcode = 31
	OpLload2          Opcode = 32
	OpLload3          Opcode = 33
	OpFload0          Opcode = 34
	OpFload1          Opcode = 35
	OpFload2          Opcode = 36
	OpFload3          Opcode = 37
	OpDload0          Opcode = 38
	OpDload1          Opcode = 39
	OpDload2          Opcode = 40
	OpDload3          Opcode = 41
	OpAload0          Opcode = 42
	OpAload1          Opcode = 43
	OpAload2          Opcode = 44
	OpAload3          Opcode = 45
	OpIaload          Opcode = 46
	OpLaload          Opcode = 47
	OpFaload          Opcode = 48
	OpDaload          Opcode = 49
	OpAaload          Opcode = 50
	OpBaload          Opcode = 51
	OpCaload          Opcode = 52
	OpSaload          Opcode = 53
	OpIstore          Opcode = 54
	OpLstore          Opcode = 55
	OpFstore          Opcode = 56
	OpDstore          Opcode = 57
	OpAstore          Opcode = 58
	OpIstore0         Opcode = 59
	OpIstore1         Opcode = 60
	OpIstore2         Opcode = 61
	OpIstore3         Opcode = 62
	OpLstore0         Opcode = 63
	OpLstore1         Opcode = 64
	OpLstore2         Opcode = 65
	OpLstore3         Opcode = 66
	OpFstore0         Opcode = 67
	OpFstore1         Opcode = 68
	OpFstore2         Opcode = 69
	OpFstore3         Opcode = 70
	OpDstore0         Opcode = 71
	OpDstore1         Opcode = 72
	OpDstore2         Opcode = 73
	OpDstore3         Opcode = 74
	OpAstore0         Opcode = 75
	OpAstore1         Opcode = 76
	OpAstore2         Opcode = 77
	OpAstore3         Opcode = 78
	OpIastore         Opcode = 79
	OpLastore         Opcode = 80
	OpFastore         Opcode = 81
	OpDastore         Opcode = 82
	OpAastore         Opcode = 83
	OpBastore         Opcode = 84
	OpCastore         Opcode = 85
	OpSastore         Opcode = 86
	OpPop             Opcode = 87
	OpPop2            Opcode = 88
	OpDup             Opcode = 89
	OpDupX1           Opcode = 90
	OpDupX2           Opcode = 91
	OpDup2            Opcode = 92
	OpDup2X1          Opcode = 93
	OpDup2X2          Opcode = 94
	OpSwap            Opcode = 95
	OpIadd            Opcode = 96
	OpLadd            Opcode = 97
	OpFadd            Opcode = 98
	OpDadd            Opcode = 99
	OpIsub            Opcode = 100
	OpLsub            Opcode = 101
	OpFsub            Opcode = 102
	OpDsub            Opcode = 103
	OpImul            Opcode = 104
	OpLmul            Opcode = 105
	OpFmul            Opcode = 106
	OpDmul            Opcode = 107
	OpIdiv            Opcode = 108
	OpLdiv            Opcode = 109
	OpFdiv            Opcode = 110
	OpDdiv            Opcode = 111
	OpIrem            Opcode = 112
	OpLrem            Opcode = 113
	OpFrem            Opcode = 114
	OpDrem            Opcode = 115
	OpIneg            Opcode = 116
	OpLneg            Opcode = 117
	OpFneg            Opcode = 118
	OpDneg            Opcode = 119
	OpIshl            Opcode = 120
	OpLshl            Opcode = 121
	OpIshr            Opcode = 122
	OpLshr            Opcode = 123
	OpIushr           Opcode = 124
	OpLushr           Opcode = 125
	OpIand            Opcode = 126
	OpLand            Opcode = 127
	OpIor             Opcode = 128
	OpLor             Opcode = 129
	OpIxor            Opcode = 130
	OpLxor            Opcode = 131
	OpIinc            Opcode = 132
	OpI2l             Opcode = 133
	OpI2f             Opcode = 134
	OpI2d             Opcode = 135
	OpL2i             Opcode = 136
	OpL2f             Opcode = 137
	OpL2d             Opcode = 138
	OpF2i             Opcode = 139
	OpF2l             Opcode = 140
	OpF2d             Opcode = 141
	OpD2i             Opcode = 142
	OpD2l             Opcode = 143
	OpD2f             Opcode = 144
	OpI2b             Opcode = 145
	OpI2c             Opcode = 146
	OpI2s             Opcode = 147
	OpLcmp            Opcode = 148
	OpFcmpl           Opcode = 149
	OpFcmpg           Opcode = 150
	OpDcmpl           Opcode = 151
	OpDcmpg           Opcode = 152
	OpIfeq            Opcode = 153
	OpIfne            Opcode = 154
	OpIflt            Opcode = 155
	OpIfge            Opcode = 156
	OpIfgt            Opcode = 157
	OpIfle            Opcode = 158
	OpIfIcmpeq        Opcode = 159
	OpIfIcmpne        Opcode = 160
	OpIfIcmplt        Opcode = 161
	OpIfIcmpge        Opcode = 162
	OpIfIcmpgt        Opcode = 163
	OpIfIcmple        Opcode = 164
	OpIfAcmpeq        Opcode = 165
	OpIfAcmpne        Opcode = 166
	OpGoto            Opcode = 167
	OpJsr             Opcode = 168
	OpRet             Opcode = 169
	OpTableswitch     Opcode = 170
	OpLookupswitch    Opcode = 171
	OpIreturn         Opcode = 172
	OpLreturn         Opcode = 173
	OpFreturn         Opcode = 174
	OpDreturn         Opcode = 175
	OpAreturn         Opcode = 176
	OpReturn          Opcode = 177
	OpGetstatic       Opcode = 178
	OpPutstatic       Opcode = 179
	OpGetfield        Opcode = 180
	OpPutfield        Opcode = 181
	OpInvokevirtual   Opcode = 182
	OpInvokespecial   Opcode = 183
	OpInvokestatic    Opcode = 184
	OpInvokeinterface Opcode = 185
	OpInvokedynamic   Opcode = 186
	OpNew             Opcode = 187
	OpNewarray        Opcode = 188
	OpAnewarray       Opcode = 189
	OpArraylength     Opcode = 190
	OpAthrow          Opcode = 191
	OpCheckcast       Opcode = 192
	OpInstanceof      Opcode = 193
	OpMonitorenter    Opcode = 194
	OpMonitorexit     Opcode = 195
	OpWide            Opcode = 196
	OpMultianewarray  Opcode = 197
	OpIfnull          Opcode = 198
	OpIfnonnull       Opcode = 199
	OpGotoW           Opcode = 200
	OpJsrW            Opcode = 201
	OpBreakpoint      Opcode = 202
	OpImpdep1         Opcode = 254
	OpImpdep2         Opcode = 255
)

type opcodeInfo struct {
	name string
	// operands is the fixed operand length in bytes, or -1 when it
	// depends on the instruction stream.
	operands int
}

var opcodes = [256]opcodeInfo{
	OpNop:             {"nop", 0},
	OpAconstNull:      {"aconst_null", 0},
	OpIconstM1:        {"iconst_m1", 0},
	OpIconst0:         {"iconst_0", 0},
	OpIconst1:         {"iconst_1", 0},
	OpIconst2:         {"iconst_2", 0},
	OpIconst3:         {"iconst_3", 0},
	OpIconst4:         {"iconst_4", 0},
	OpIconst5:         {"iconst_5", 0},
	OpLconst0:         {"lconst_0", 0},
	OpLconst1:         {"lconst_1", 0},
	OpFconst0:         {"fconst_0", 0},
	OpFconst1:         {"fconst_1", 0},
	OpFconst2:         {"fconst_2", 0},
	OpDconst0:         {"dconst_0", 0},
	OpDconst1:         {"dconst_1", 0},
	OpBipush:          {"bipush", 1},
	OpSipush:          {"sipush", 2},
	OpLdc:             {"ldc", 1},
	OpLdcW:            {"ldc_w", 2},
	OpLdc2W:           {"ldc2_w", 2},
	OpIload:           {"iload", 1},
	OpLload:           {"lload", 1},
	OpFload:           {"fload", 1},
	OpDload:           {"dload", 1},
	OpAload:           {"aload", 1},
	OpIload0:          {"iload_0", 0},
	OpIload1:          {"iload_1", 0},
	OpIload2:          {"iload_2", 0},
	OpIload3:          {"iload_3", 0},
	OpLload0:          {"lload_0", 0},
	OpLload1:          {"lload_1", 0},
	OpLload2:          {"lload_2", 0},
	OpLload3:          {"lload_3", 0},
	OpFload0:          {"fload_0", 0},
	OpFload1:          {"fload_1", 0},
	OpFload2:          {"fload_2", 0},
	OpFload3:          {"fload_3", 0},
	OpDload0:          {"dload_0", 0},
	OpDload1:          {"dload_1", 0},
	OpDload2:          {"dload_2", 0},
	OpDload3:          {"dload_3", 0},
	OpAload0:          {"aload_0", 0},
	OpAload1:          {"aload_1", 0},
	OpAload2:          {"aload_2", 0},
	OpAload3:          {"aload_3", 0},
	OpIaload:          {"iaload", 0},
	OpLaload:          {"laload", 0},
	OpFaload:          {"faload", 0},
	OpDaload:          {"daload", 0},
	OpAaload:          {"aaload", 0},
	OpBaload:          {"baload", 0},
	OpCaload:          {"caload", 0},
	OpSaload:          {"saload", 0},
	OpIstore:          {"istore", 1},
	OpLstore:          {"lstore", 1},
	OpFstore:          {"fstore", 1},
	OpDstore:          {"dstore", 1},
	OpAstore:          {"astore", 1},
	OpIstore0:         {"istore_0", 0},
	OpIstore1:         {"istore_1", 0},
	OpIstore2:         {"istore_2", 0},
	OpIstore3:         {"istore_3", 0},
	OpLstore0:         {"lstore_0", 0},
	OpLstore1:         {"lstore_1", 0},
	OpLstore2:         {"lstore_2", 0},
	OpLstore3:         {"lstore_3", 0},
	OpFstore0:         {"fstore_0", 0},
	OpFstore1:         {"fstore_1", 0},
	OpFstore2:         {"fstore_2", 0},
	OpFstore3:         {"fstore_3", 0},
	OpDstore0:         {"dstore_0", 0},
	OpDstore1:         {"dstore_1", 0},
	OpDstore2:         {"dstore_2", 0},
	OpDstore3:         {"dstore_3", 0},
	OpAstore0:         {"astore_0", 0},
	OpAstore1:         {"astore_1", 0},
	OpAstore2:         {"astore_2", 0},
	OpAstore3:         {"astore_3", 0},
	OpIastore:         {"iastore", 0},
	OpLastore:         {"lastore", 0},
	OpFastore:         {"fastore", 0},
	OpDastore:         {"dastore", 0},
	OpAastore:         {"aastore", 0},
	OpBastore:         {"bastore", 0},
	OpCastore:         {"castore", 0},
	OpSastore:         {"sastore", 0},
	OpPop:             {"pop", 0},
	OpPop2:            {"pop2", 0},
	OpDup:             {"dup", 0},
	OpDupX1:           {"dup_x1", 0},
	OpDupX2:           {"dup_x2", 0},
	OpDup2:            {"dup2", 0},
	OpDup2X1:          {"dup2_x1", 0},
	OpDup2X2:          {"dup2_x2", 0},
	OpSwap:            {"swap", 0},
	OpIadd:            {"iadd", 0},
	OpLadd:            {"ladd", 0},
	OpFadd:            {"fadd", 0},
	OpDadd:            {"dadd", 0},
	OpIsub:            {"isub", 0},
	OpLsub:            {"lsub", 0},
	OpFsub:            {"fsub", 0},
	OpDsub:            {"dsub", 0},
	OpImul:            {"imul", 0},
	OpLmul:            {"lmul", 0},
	OpFmul:            {"fmul", 0},
	OpDmul:            {"dmul", 0},
	OpIdiv:            {"idiv", 0},
	OpLdiv:            {"ldiv", 0},
	OpFdiv:            {"fdiv", 0},
	OpDdiv:            {"ddiv", 0},
	OpIrem:            {"irem", 0},
	OpLrem:            {"lrem", 0},
	OpFrem:            {"frem", 0},
	OpDrem:            {"drem", 0},
	OpIneg:            {"ineg", 0},
	OpLneg:            {"lneg", 0},
	OpFneg:            {"fneg", 0},
	OpDneg:            {"dneg", 0},
	OpIshl:            {"ishl", 0},
	OpLshl:            {"lshl", 0},
	OpIshr:            {"ishr", 0},
	OpLshr:            {"lshr", 0},
	OpIushr:           {"iushr", 0},
	OpLushr:           {"lushr", 0},
	OpIand:            {"iand", 0},
	OpLand:            {"land", 0},
	OpIor:             {"ior", 0},
	OpLor:             {"lor", 0},
	OpIxor:            {"ixor", 0},
	OpLxor:            {"lxor", 0},
	OpIinc:            {"iinc", 2},
	OpI2l:             {"i2l", 0},
	OpI2f:             {"i2f", 0},
	OpI2d:             {"i2d", 0},
	OpL2i:             {"l2i", 0},
	OpL2f:             {"l2f", 0},
	OpL2d:             {"l2d", 0},
	OpF2i:             {"f2i", 0},
	OpF2l:             {"f2l", 0},
	OpF2d:             {"f2d", 0},
	OpD2i:             {"d2i", 0},
	OpD2l:             {"d2l", 0},
	OpD2f:             {"d2f", 0},
	OpI2b:             {"i2b", 0},
	OpI2c:             {"i2c", 0},
	OpI2s:             {"i2s", 0},
	OpLcmp:            {"lcmp", 0},
	OpFcmpl:           {"fcmpl", 0},
	OpFcmpg:           {"fcmpg", 0},
	OpDcmpl:           {"dcmpl", 0},
	OpDcmpg:           {"dcmpg", 0},
	OpIfeq:            {"ifeq", 2},
	OpIfne:            {"ifne", 2},
	OpIflt:            {"iflt", 2},
	OpIfge:            {"ifge", 2},
	OpIfgt:            {"ifgt", 2},
	OpIfle:            {"ifle", 2},
	OpIfIcmpeq:        {"if_icmpeq", 2},
	OpIfIcmpne:        {"if_icmpne", 2},
	OpIfIcmplt:        {"if_icmplt", 2},
	OpIfIcmpge:        {"if_icmpge", 2},
	OpIfIcmpgt:        {"if_icmpgt", 2},
	OpIfIcmple:        {"if_icmple", 2},
	OpIfAcmpeq:        {"if_acmpeq", 2},
	OpIfAcmpne:        {"if_acmpne", 2},
	OpGoto:            {"goto", 2},
	OpJsr:             {"jsr", 2},
	OpRet:             {"ret", 1},
	OpTableswitch:     {"tableswitch", -1},
	OpLookupswitch:    {"lookupswitch", -1},
	OpIreturn:         {"ireturn", 0},
	OpLreturn:         {"lreturn", 0},
	OpFreturn:         {"freturn", 0},
	OpDreturn:         {"dreturn", 0},
	OpAreturn:         {"areturn", 0},
	OpReturn:          {"return", 0},
	OpGetstatic:       {"getstatic", 2},
	OpPutstatic:       {"putstatic", 2},
	OpGetfield:        {"getfield", 2},
	OpPutfield:        {"putfield", 2},
	OpInvokevirtual:   {"invokevirtual", 2},
	OpInvokespecial:   {"invokespecial", 2},
	OpInvokestatic:    {"invokestatic", 2},
	OpInvokeinterface: {"invokeinterface", 4},
	OpInvokedynamic:   {"invokedynamic", 4},
	OpNew:             {"new", 2},
	OpNewarray:        {"newarray", 1},
	OpAnewarray:       {"anewarray", 2},
	OpArraylength:     {"arraylength", 0},
	OpAthrow:          {"athrow", 0},
	OpCheckcast:       {"checkcast", 2},
	OpInstanceof:      {"instanceof", 2},
	OpMonitorenter:    {"monitorenter", 0},
	OpMonitorexit:     {"monitorexit", 0},
	OpWide:            {"wide", -1},
	OpMultianewarray:  {"multianewarray", 3},
	OpIfnull:          {"ifnull", 2},
	OpIfnonnull:       {"ifnonnull", 2},
	OpGotoW:           {"goto_w", 4},
	OpJsrW:            {"jsr_w", 4},
	OpBreakpoint:      {"breakpoint", 0},
	OpImpdep1:         {"impdep1", 0},
	OpImpdep2:         {"impdep2", 0},
}

func (op Opcode) String() string {
	if name := opcodes[op].name; name != "" {
		return name
	}
	return fmt.Sprintf("opcode_%d", uint8(op))
}

// Valid reports whether op is assigned, reserved opcodes included.
func (op Opcode) Valid() bool {
	return opcodes[op].name != ""
}

// IsBranch reports whether op takes a single relative branch offset.
func (op Opcode) IsBranch() bool {
	switch {
	case op >= OpIfeq && op <= OpJsr:
		return true
	case op == OpIfnull, op == OpIfnonnull, op == OpGotoW, op == OpJsrW:
		return true
	}
	return false
}

func (op Opcode) IsSwitch() bool {
	return op == OpTableswitch || op == OpLookupswitch
}

func (op Opcode) IsReturn() bool {
	return op >= OpIreturn && op <= OpReturn
}

func (op Opcode) IsInvoke() bool {
	return op >= OpInvokevirtual && op <= OpInvokedynamic
}

func (op Opcode) IsFieldAccess() bool {
	return op >= OpGetstatic && op <= OpPutfield
}

// IsUnconditionalTransfer reports whether op is a return, ret, goto or
// athrow. Switches are not included.
func (op Opcode) IsUnconditionalTransfer() bool {
	switch op {
	case OpGoto, OpGotoW, OpRet, OpAthrow:
		return true
	}
	return op.IsReturn()
}

func (op Opcode) isLocalVariable() bool {
	switch {
	case op >= OpIload && op <= OpAload3:
		return true
	case op >= OpIstore && op <= OpAstore3:
		return true
	}
	return op == OpIinc || op == OpRet
}

func (op Opcode) isWidenable() bool {
	switch {
	case op >= OpIload && op <= OpAload:
		return true
	case op >= OpIstore && op <= OpAstore:
		return true
	}
	return op == OpIinc || op == OpRet
}

// implicitLocal returns the index encoded in the xLOAD_n/xSTORE_n forms.
func (op Opcode) implicitLocal() (int, bool) {
	switch {
	case op >= OpIload0 && op <= OpAload3:
		return int(op-OpIload0) % 4, true
	case op >= OpIstore0 && op <= OpAstore3:
		return int(op-OpIstore0) % 4, true
	}
	return 0, false
}

// IsTwoSlotLocal reports whether op loads or stores a long or double local.
func (op Opcode) IsTwoSlotLocal() bool {
	switch op {
	case OpLload, OpDload, OpLstore, OpDstore,
		OpLload0, OpLload1, OpLload2, OpLload3,
		OpDload0, OpDload1, OpDload2, OpDload3,
		OpLstore0, OpLstore1, OpLstore2, OpLstore3,
		OpDstore0, OpDstore1, OpDstore2, OpDstore3:
		return true
	}
	return false
}

// IsAstore reports whether op is astore or one of its astore_n forms.
func (op Opcode) IsAstore() bool {
	return op == OpAstore || (op >= OpAstore0 && op <= OpAstore3)
}
