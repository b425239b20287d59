package protocol

// Skip consumes one value of type typ from r without materializing it.
//
// maxDepth bounds how many composite levels (struct, map, set, list) may be
// entered: a struct holding only primitives needs a depth of 1. Skip fails
// with ErrDepthLimit when a composite is reached with no depth left. Callers
// normally pass Config.Depth().
func Skip(r Reader, typ TType, maxDepth int) error {
	switch typ {
	case STRUCT, MAP, SET, LIST:
		if maxDepth <= 0 {
			return newError(DepthLimit, "cannot enter %s", typ)
		}
	}
	switch typ {
	case BOOL:
		_, err := r.ReadBool()
		return err
	case BYTE:
		_, err := r.ReadI8()
		return err
	case I16:
		_, err := r.ReadI16()
		return err
	case I32:
		_, err := r.ReadI32()
		return err
	case I64:
		_, err := r.ReadI64()
		return err
	case DOUBLE:
		_, err := r.ReadDouble()
		return err
	case STRING:
		_, err := r.ReadBinary()
		return err
	case STRUCT:
		if _, err := r.ReadStructBegin(); err != nil {
			return err
		}
		for {
			_, fieldType, _, err := r.ReadFieldBegin()
			if err != nil {
				return err
			}
			if fieldType == STOP {
				break
			}
			if err := Skip(r, fieldType, maxDepth-1); err != nil {
				return err
			}
			if err := r.ReadFieldEnd(); err != nil {
				return err
			}
		}
		return r.ReadStructEnd()
	case MAP:
		keyType, valueType, size, err := r.ReadMapBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := Skip(r, keyType, maxDepth-1); err != nil {
				return err
			}
			if err := Skip(r, valueType, maxDepth-1); err != nil {
				return err
			}
		}
		return r.ReadMapEnd()
	case SET:
		elemType, size, err := r.ReadSetBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := Skip(r, elemType, maxDepth-1); err != nil {
				return err
			}
		}
		return r.ReadSetEnd()
	case LIST:
		elemType, size, err := r.ReadListBegin()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			if err := Skip(r, elemType, maxDepth-1); err != nil {
				return err
			}
		}
		return r.ReadListEnd()
	}
	return newError(UnknownType, "cannot skip %s", typ)
}
