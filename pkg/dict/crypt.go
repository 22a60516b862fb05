package dict

// obfuscate forward-chains every byte except the fill byte: each byte is
// XORed with the previous output byte, the first with key. The key is then
// stored in the fill byte. This is obfuscation, not security.
func obfuscate(buf []byte, fill int, key byte) {
	prev := key
	for i := range buf {
		if i == fill {
			continue
		}
		buf[i] ^= prev
		prev = buf[i]
	}
	buf[fill] = key
}

// deobfuscate reverses obfuscate in place and clears the fill byte.
// A zero fill byte means the buffer is plaintext already.
func deobfuscate(buf []byte, fill int) {
	key := buf[fill]
	if key == 0 {
		return
	}
	prev := key
	for i := range buf {
		if i == fill {
			continue
		}
		c := buf[i]
		buf[i] = c ^ prev
		prev = c
	}
	buf[fill] = 0
}
