package names

var classOpcodes = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0",
	"iconst_1", "iconst_2", "iconst_3", "iconst_4",
	"iconst_5", "lconst_0", "lconst_1", "fconst_0",
	"fconst_1", "fconst_2", "dconst_0", "dconst_1",
	"bipush", "sipush", "ldc", "ldc_w",
	"ldc2_w", "iload", "lload", "fload",
	"dload", "aload", "iload_0", "iload_1",
	"iload_2", "iload_3", "lload_0", "lload_1",
	"lload_2", "lload_3", "fload_0", "fload_1",
	"fload_2", "fload_3", "dload_0", "dload_1",
	"dload_2", "dload_3", "aload_0", "aload_1",
	"aload_2", "aload_3", "iaload", "laload",
	"faload", "daload", "aaload", "baload",
	"caload", "saload", "istore", "lstore",
	"fstore", "dstore", "astore", "istore_0",
	"istore_1", "istore_2", "istore_3", "lstore_0",
	"lstore_1", "lstore_2", "lstore_3", "fstore_0",
	"fstore_1", "fstore_2", "fstore_3", "dstore_0",
	"dstore_1", "dstore_2", "dstore_3", "astore_0",
	"astore_1", "astore_2", "astore_3", "iastore",
	"lastore", "fastore", "dastore", "aastore",
	"bastore", "castore", "sastore", "pop",
	"pop2", "dup", "dup_x1", "dup_x2",
	"dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd",
	"isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul",
	"idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem",
	"ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr",
	"iushr", "lushr", "iand", "land",
	"ior", "lor", "ixor", "lxor",
	"iinc", "i2l", "i2f", "i2d",
	"l2i", "l2f", "l2d", "f2i",
	"f2l", "f2d", "d2i", "d2l",
	"d2f", "i2b", "i2c", "i2s",
	"lcmp", "fcmpl", "fcmpg", "dcmpl",
	"dcmpg", "ifeq", "ifne", "iflt",
	"ifge", "ifgt", "ifle", "if_icmpeq",
	"if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt",
	"if_icmple", "if_acmpeq", "if_acmpne", "goto",
	"jsr", "ret", "tableswitch", "lookupswitch",
	"ireturn", "lreturn", "freturn", "dreturn",
	"areturn", "return", "getstatic", "putstatic",
	"getfield", "putfield", "invokevirtual", "invokespecial",
	"invokestatic", "invokeinterface", "invokedynamic", "new",
	"newarray", "anewarray", "arraylength", "athrow",
	"checkcast", "instanceof", "monitorenter", "monitorexit",
	"wide", "multianewarray", "ifnull", "ifnonnull",
	"goto_w", "jsr_w",
}

var dexOpcodes = [256]string{
	0x00: "nop",
	0x01: "move",
	0x02: "move/from16",
	0x03: "move/16",
	0x04: "move-wide",
	0x05: "move-wide/from16",
	0x06: "move-wide/16",
	0x07: "move-object",
	0x08: "move-object/from16",
	0x09: "move-object/16",
	0x0a: "move-result",
	0x0b: "move-result-wide",
	0x0c: "move-result-object",
	0x0d: "move-exception",
	0x0e: "return-void",
	0x0f: "return",
	0x10: "return-wide",
	0x11: "return-object",
	0x12: "const/4",
	0x13: "const/16",
	0x14: "const",
	0x15: "const/high16",
	0x16: "const-wide/16",
	0x17: "const-wide/32",
	0x18: "const-wide",
	0x19: "const-wide/high16",
	0x1a: "const-string",
	0x1b: "const-string/jumbo",
	0x1c: "const-class",
	0x1d: "monitor-enter",
	0x1e: "monitor-exit",
	0x1f: "check-cast",
	0x20: "instance-of",
	0x21: "array-length",
	0x22: "new-instance",
	0x23: "new-array",
	0x24: "filled-new-array",
	0x25: "filled-new-array/range",
	0x26: "fill-array-data",
	0x27: "throw",
	0x28: "goto",
	0x29: "goto/16",
	0x2a: "goto/32",
	0x2b: "packed-switch",
	0x2c: "sparse-switch",
	0x2d: "cmpl-float",
	0x2e: "cmpg-float",
	0x2f: "cmpl-double",
	0x30: "cmpg-double",
	0x31: "cmp-long",
	0x32: "if-eq",
	0x33: "if-ne",
	0x34: "if-lt",
	0x35: "if-ge",
	0x36: "if-gt",
	0x37: "if-le",
	0x38: "if-eqz",
	0x39: "if-nez",
	0x3a: "if-ltz",
	0x3b: "if-gez",
	0x3c: "if-gtz",
	0x3d: "if-lez",
	0x44: "aget",
	0x45: "aget-wide",
	0x46: "aget-object",
	0x47: "aget-boolean",
	0x48: "aget-byte",
	0x49: "aget-char",
	0x4a: "aget-short",
	0x4b: "aput",
	0x4c: "aput-wide",
	0x4d: "aput-object",
	0x4e: "aput-boolean",
	0x4f: "aput-byte",
	0x50: "aput-char",
	0x51: "aput-short",
	0x52: "iget",
	0x53: "iget-wide",
	0x54: "iget-object",
	0x55: "iget-boolean",
	0x56: "iget-byte",
	0x57: "iget-char",
	0x58: "iget-short",
	0x59: "iput",
	0x5a: "iput-wide",
	0x5b: "iput-object",
	0x5c: "iput-boolean",
	0x5d: "iput-byte",
	0x5e: "iput-char",
	0x5f: "iput-short",
	0x60: "sget",
	0x61: "sget-wide",
	0x62: "sget-object",
	0x63: "sget-boolean",
	0x64: "sget-byte",
	0x65: "sget-char",
	0x66: "sget-short",
	0x67: "sput",
	0x68: "sput-wide",
	0x69: "sput-object",
	0x6a: "sput-boolean",
	0x6b: "sput-byte",
	0x6c: "sput-char",
	0x6d: "sput-short",
	0x6e: "invoke-virtual",
	0x6f: "invoke-super",
	0x70: "invoke-direct",
	0x71: "invoke-static",
	0x72: "invoke-interface",
	0x74: "invoke-virtual/range",
	0x75: "invoke-super/range",
	0x76: "invoke-direct/range",
	0x77: "invoke-static/range",
	0x78: "invoke-interface/range",
	0x7b: "neg-int",
	0x7c: "not-int",
	0x7d: "neg-long",
	0x7e: "not-long",
	0x7f: "neg-float",
	0x80: "neg-double",
	0x81: "int-to-long",
	0x82: "int-to-float",
	0x83: "int-to-double",
	0x84: "long-to-int",
	0x85: "long-to-float",
	0x86: "long-to-double",
	0x87: "float-to-int",
	0x88: "float-to-long",
	0x89: "float-to-double",
	0x8a: "double-to-int",
	0x8b: "double-to-long",
	0x8c: "double-to-float",
	0x8d: "int-to-byte",
	0x8e: "int-to-char",
	0x8f: "int-to-short",
	0x90: "add-int",
	0x91: "sub-int",
	0x92: "mul-int",
	0x93: "div-int",
	0x94: "rem-int",
	0x95: "and-int",
	0x96: "or-int",
	0x97: "xor-int",
	0x98: "shl-int",
	0x99: "shr-int",
	0x9a: "ushr-int",
	0x9b: "add-long",
	0x9c: "sub-long",
	0x9d: "mul-long",
	0x9e: "div-long",
	0x9f: "rem-long",
	0xa0: "and-long",
	0xa1: "or-long",
	0xa2: "xor-long",
	0xa3: "shl-long",
	0xa4: "shr-long",
	0xa5: "ushr-long",
	0xa6: "add-float",
	0xa7: "sub-float",
	0xa8: "mul-float",
	0xa9: "div-float",
	0xaa: "rem-float",
	0xab: "add-double",
	0xac: "sub-double",
	0xad: "mul-double",
	0xae: "div-double",
	0xaf: "rem-double",
	0xb0: "add-int/2addr",
	0xb1: "sub-int/2addr",
	0xb2: "mul-int/2addr",
	0xb3: "div-int/2addr",
	0xb4: "rem-int/2addr",
	0xb5: "and-int/2addr",
	0xb6: "or-int/2addr",
	0xb7: "xor-int/2addr",
	0xb8: "shl-int/2addr",
	0xb9: "shr-int/2addr",
	0xba: "ushr-int/2addr",
	0xbb: "add-long/2addr",
	0xbc: "sub-long/2addr",
	0xbd: "mul-long/2addr",
	0xbe: "div-long/2addr",
	0xbf: "rem-long/2addr",
	0xc0: "and-long/2addr",
	0xc1: "or-long/2addr",
	0xc2: "xor-long/2addr",
	0xc3: "shl-long/2addr",
	0xc4: "shr-long/2addr",
	0xc5: "ushr-long/2addr",
	0xc6: "add-float/2addr",
	0xc7: "sub-float/2addr",
	0xc8: "mul-float/2addr",
	0xc9: "div-float/2addr",
	0xca: "rem-float/2addr",
	0xcb: "add-double/2addr",
	0xcc: "sub-double/2addr",
	0xcd: "mul-double/2addr",
	0xce: "div-double/2addr",
	0xcf: "rem-double/2addr",
	0xd0: "add-int/lit16",
	0xd1: "rsub-int/lit16",
	0xd2: "mul-int/lit16",
	0xd3: "div-int/lit16",
	0xd4: "rem-int/lit16",
	0xd5: "and-int/lit16",
	0xd6: "or-int/lit16",
	0xd7: "xor-int/lit16",
	0xd8: "add-int/lit8",
	0xd9: "rsub-int/lit8",
	0xda: "mul-int/lit8",
	0xdb: "div-int/lit8",
	0xdc: "rem-int/lit8",
	0xdd: "and-int/lit8",
	0xde: "or-int/lit8",
	0xdf: "xor-int/lit8",
	0xe0: "shl-int/lit8",
	0xe1: "shr-int/lit8",
	0xe2: "ushr-int/lit8",
	0xfa: "invoke-polymorphic",
	0xfb: "invoke-polymorphic/range",
	0xfc: "invoke-custom",
	0xfd: "invoke-custom/range",
	0xfe: "const-method-handle",
	0xff: "const-method-type",
}
