package wasm

const (
	nameSubModule    = 0
	nameSubFunctions = 1
	nameSubLocals    = 2
)

type nameEntry struct {
	idx  uint32
	name string
}

// NameMap maps indices to names. Entries must be appended in increasing
// index order.
type NameMap struct {
	entries []nameEntry
}

func (m *NameMap) Append(idx uint32, name string) {
	m.entries = append(m.entries, nameEntry{idx: idx, name: name})
}

func (m *NameMap) append(buf []byte) []byte {
	buf = appendULEB128(buf, uint32(len(m.entries)))
	for _, e := range m.entries {
		buf = appendULEB128(buf, e.idx)
		buf = appendName(buf, e.name)
	}
	return buf
}

type indirectEntry struct {
	idx   uint32
	names *NameMap
}

// IndirectNameMap maps function indices to their local name maps.
type IndirectNameMap struct {
	entries []indirectEntry
}

func (m *IndirectNameMap) Append(idx uint32, names *NameMap) {
	m.entries = append(m.entries, indirectEntry{idx: idx, names: names})
}

// NameSection is the "name" custom section. Subsections are emitted in the
// order module, functions, locals, and only when set.
type NameSection struct {
	module    *string
	functions *NameMap
	locals    *IndirectNameMap
}

func (s *NameSection) Module(name string)        { s.module = &name }
func (s *NameSection) Functions(m *NameMap)      { s.functions = m }
func (s *NameSection) Locals(m *IndirectNameMap) { s.locals = m }
func (s *NameSection) ID() byte                  { return SectionCustom }

func (s *NameSection) Payload() []byte {
	buf := appendName(nil, "name")
	if s.module != nil {
		buf = appendSubsection(buf, nameSubModule, appendName(nil, *s.module))
	}
	if s.functions != nil {
		buf = appendSubsection(buf, nameSubFunctions, s.functions.append(nil))
	}
	if s.locals != nil {
		sub := appendULEB128(nil, uint32(len(s.locals.entries)))
		for _, e := range s.locals.entries {
			sub = appendULEB128(sub, e.idx)
			sub = e.names.append(sub)
		}
		buf = appendSubsection(buf, nameSubLocals, sub)
	}
	return buf
}

func appendSubsection(buf []byte, id byte, payload []byte) []byte {
	buf = append(buf, id)
	buf = appendULEB128(buf, uint32(len(payload)))
	return append(buf, payload...)
}
