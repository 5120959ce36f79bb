// marshal.go - the FsNode wire format.
//
// Licensing Terms: GPLv2
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package fsnode

import "fmt"

// marshalVersion is bumped whenever the wire encoding changes shape.
// Unmarshal rejects any version it does not recognize (spec §6: "two
// versions of the core must agree bit-for-bit or reject unknown
// encodings").
const marshalVersion byte = 1

// MarshalSize returns the number of bytes Marshal/MarshalTo will produce.
func (n Node) MarshalSize() int {
	// 4b length prefix + 1b version + 1b kind
	sz := 4 + 1 + 1

	if n.Kind == Folder {
		sz += 4 // child count
		for name := range n.Children {
			sz += 4 + len(name) + 1 // name length + name + child kind
		}
	}
	return sz
}

// MarshalTo marshals n into b, which must be at least MarshalSize() bytes.
// It returns the number of bytes written.
func (n Node) MarshalTo(b []byte) (int, error) {
	sz := n.MarshalSize()
	if len(b) < sz {
		return 0, fmt.Errorf("marshal: buf: %w", ErrTooSmall)
	}

	// let the compiler know b is sized correctly
	_ = b[sz-1]

	b = enc32(b, sz-4)
	b = encbyte(b, marshalVersion)
	b = encbyte(b, byte(n.Kind))

	if n.Kind == Folder {
		b = enc32(b, len(n.Children))
		for name, k := range n.Children {
			b = encstr(b, name)
			b = encbyte(b, byte(k))
		}
	}
	return sz, nil
}

// Marshal marshals n into a freshly allocated, correctly sized buffer.
func (n Node) Marshal() ([]byte, error) {
	b := make([]byte, n.MarshalSize())
	_, err := n.MarshalTo(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Unmarshal decodes a Node from b, returning the number of bytes consumed.
func Unmarshal(b []byte) (Node, int, error) {
	if len(b) < 4 {
		return Node{}, 0, fmt.Errorf("unmarshal: len: %w", ErrTooSmall)
	}

	var z int
	b, z = dec32[int](b)
	if len(b) < z {
		return Node{}, 0, fmt.Errorf("unmarshal: buf %d; want %d: %w", len(b), z, ErrTooSmall)
	}
	if z < 2 {
		return Node{}, 0, fmt.Errorf("unmarshal: buf exp %d, have %d: %w", z, len(b), ErrTooSmall)
	}

	// let the compiler know b is sized correctly
	_ = b[z-1]

	ver := b[0]
	b = b[1:]

	switch ver {
	case 1:
		n, err := unmarshalV1(b)
		if err != nil {
			return Node{}, 0, err
		}
		return n, z + 4, nil
	default:
		return Node{}, 0, fmt.Errorf("unmarshal: unsupported encoding version %d", ver)
	}
}

func unmarshalV1(b []byte) (Node, error) {
	if len(b) < 1 {
		return Node{}, fmt.Errorf("unmarshal: kind: %w", ErrTooSmall)
	}

	kind := Kind(b[0])
	b = b[1:]

	if kind != Folder {
		return Node{Kind: kind}, nil
	}

	if len(b) < 4 {
		return Node{}, fmt.Errorf("unmarshal: child count: %w", ErrTooSmall)
	}

	var count int
	b, count = dec32[int](b)

	children := make(map[string]Kind, count)
	for i := 0; i < count; i++ {
		var name string
		var err error

		b, name, err = decstr(b)
		if err != nil {
			return Node{}, err
		}
		if len(b) < 1 {
			return Node{}, fmt.Errorf("unmarshal: child kind: %w", ErrTooSmall)
		}
		children[name] = Kind(b[0])
		b = b[1:]
	}

	return Node{Kind: Folder, Children: children}, nil
}
