package engine

// Keyboard tracks held keys with last-note priority. The sounding note is
// the most recently pressed key still held; after all keys are released it
// stays at the last sounding note so the release tail keeps its pitch.
type Keyboard struct {
	held [maxHeld]byte
	n    int
	note byte
}

const maxHeld = 32

func NewKeyboard() *Keyboard {
	return &Keyboard{note: ReferenceNote}
}

// Press pushes a key and reports whether another key was already held.
func (k *Keyboard) Press(note byte) (legato bool) {
	k.remove(note)
	legato = k.n > 0
	if k.n == maxHeld {
		copy(k.held[:], k.held[1:])
		k.n--
	}
	k.held[k.n] = note
	k.n++
	k.note = note
	return legato
}

// Release removes a key and reports whether any key is still held. If the
// sounding key was released, the previous held key sounds again.
func (k *Keyboard) Release(note byte) (held bool) {
	k.remove(note)
	if k.n > 0 {
		k.note = k.held[k.n-1]
	}
	return k.n > 0
}

func (k *Keyboard) remove(note byte) {
	for i := 0; i < k.n; i++ {
		if k.held[i] == note {
			copy(k.held[i:k.n], k.held[i+1:k.n])
			k.n--
			return
		}
	}
}

// Note returns the sounding note.
func (k *Keyboard) Note() byte { return k.note }

// Held returns the number of keys held.
func (k *Keyboard) Held() int { return k.n }
