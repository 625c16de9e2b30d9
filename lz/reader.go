package lz

import "fmt"

type decoder struct {
	data []byte
	pos  int

	length int
	out    []byte
}

func (d *decoder) readByte() (byte, error) {
	if d.pos < 0 || d.pos >= len(d.data) {
		return 0, fmt.Errorf("%w: unexpected end of input at %#x", ErrCorruptData, d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readHeader() error {
	var hdr [headerSize]byte
	for i := range hdr {
		b, err := d.readByte()
		if err != nil {
			return err
		}
		hdr[i] = b
	}

	if hdr[0] != typeTag {
		return fmt.Errorf("%w: unknown type %#02x", ErrCorruptData, hdr[0])
	}
	d.length = int(hdr[1]) | int(hdr[2])<<8 | int(hdr[3])<<16

	return nil
}

func (d *decoder) readReference() error {
	b0, err := d.readByte()
	if err != nil {
		return err
	}
	b1, err := d.readByte()
	if err != nil {
		return err
	}

	n := int(b0>>4) + minMatch
	disp := (int(b0&0x0f)<<8 | int(b1)) + 1

	if disp > len(d.out) {
		return fmt.Errorf("%w: reference %d bytes back with only %d decoded", ErrCorruptData, disp, len(d.out))
	}
	if len(d.out)+n > d.length {
		return fmt.Errorf("%w: reference overruns declared length %d", ErrCorruptData, d.length)
	}

	// Byte at a time as the source may overlap the bytes being written
	for i := 0; i < n; i++ {
		d.out = append(d.out, d.out[len(d.out)-disp])
	}

	return nil
}

func (d *decoder) decode(start int, configOnly bool) error {
	d.pos = start

	if err := d.readHeader(); err != nil {
		return err
	}

	if configOnly {
		return nil
	}

	d.out = make([]byte, 0, d.length)
	for len(d.out) < d.length {
		flags, err := d.readByte()
		if err != nil {
			return err
		}
		for i := tokensPerFlag - 1; i >= 0 && len(d.out) < d.length; i-- {
			if flags>>uint(i)&1 == 0 {
				b, err := d.readByte()
				if err != nil {
					return err
				}
				d.out = append(d.out, b)
				continue
			}
			if err := d.readReference(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Decompress decodes the stream that begins at offset start within data.
func Decompress(data []byte, start int) ([]byte, error) {
	d := decoder{data: data}
	if err := d.decode(start, false); err != nil {
		return nil, err
	}
	return d.out, nil
}

// DecompressedLength returns the length declared in the header of the stream
// at offset start without decoding it.
func DecompressedLength(data []byte, start int) (int, error) {
	d := decoder{data: data}
	if err := d.decode(start, true); err != nil {
		return 0, err
	}
	return d.length, nil
}

// CompressedLength decodes the stream at offset start and returns the number
// of bytes it occupies, header included.
func CompressedLength(data []byte, start int) (int, error) {
	d := decoder{data: data}
	if err := d.decode(start, false); err != nil {
		return 0, err
	}
	return d.pos - start, nil
}
