package lz

// longestMatch finds the longest run of already seen bytes that matches the
// bytes starting at p[i]. Ties go to the nearest displacement.
func longestMatch(p []byte, i int) (length, disp int) {
	limit := maxMatch
	if len(p)-i < limit {
		limit = len(p) - i
	}
	if limit < minMatch {
		return 0, 0
	}

	for d := minDisplacement; d <= windowSize && d <= i; d++ {
		n := 0
		for n < limit && p[i+n] == p[i+n-d] {
			n++
		}
		if n > length {
			length, disp = n, d
			if n == limit {
				break
			}
		}
	}

	if length < minMatch {
		return 0, 0
	}
	return length, disp
}

// Compress encodes p. The result always decompresses back to p exactly;
// matches are found greedily so the output is not necessarily the smallest
// possible encoding.
func Compress(p []byte) ([]byte, error) {
	if len(p) > maxLength {
		return nil, errTooLarge
	}

	out := make([]byte, headerSize, headerSize+len(p)+len(p)/tokensPerFlag+1)
	out[0] = typeTag
	out[1] = byte(len(p))
	out[2] = byte(len(p) >> 8)
	out[3] = byte(len(p) >> 16)

	for i := 0; i < len(p); {
		flag := len(out)
		out = append(out, 0)
		for bit := tokensPerFlag - 1; bit >= 0 && i < len(p); bit-- {
			n, disp := longestMatch(p, i)
			if n == 0 {
				out = append(out, p[i])
				i++
				continue
			}
			out[flag] |= 1 << uint(bit)
			out = append(out, byte((n-minMatch)<<4|(disp-1)>>8), byte(disp-1))
			i += n
		}
	}

	return out, nil
}
