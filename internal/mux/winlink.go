package mux

// Winlink is a session's reference to a Window at a particular index. The
// same Window may be referenced by winlinks in several sessions at once
// (when sessions are grouped, or a window is linked into more than one
// session); the Window is destroyed only when its last winlink goes away.
type Winlink struct {
	Index  int
	Window *Window
}

// winlinkAdd inserts a winlink for window into session at index (winlink_add).
// A negative index picks the lowest unused index. Returns an error if index
// is already occupied.
func (s *Session) winlinkAdd(window *Window, index int) (*Winlink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 {
		index = s.lowestFreeIndexLocked()
	} else if _, taken := s.winlinks[index]; taken {
		return nil, errWinlinkIndexTaken(index)
	}

	wl := &Winlink{Index: index, Window: window}
	s.winlinks[index] = wl
	s.order = insertSorted(s.order, index)
	window.addRef()
	return wl, nil
}

func (s *Session) lowestFreeIndexLocked() int {
	idx := 0
	for {
		if _, ok := s.winlinks[idx]; !ok {
			return idx
		}
		idx++
	}
}

func insertSorted(order []int, v int) []int {
	i := 0
	for i < len(order) && order[i] < v {
		i++
	}
	order = append(order, 0)
	copy(order[i+1:], order[i:])
	order[i] = v
	return order
}

func removeSorted(order []int, v int) []int {
	for i, o := range order {
		if o == v {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// winlinkSetWindow repoints an existing winlink at a different window
// (winlink_set_window), releasing the old window's reference and taking one
// on the new window. Returns whether the old window dropped to zero refs
// (callers should destroy it once its panes are released).
func (s *Session) winlinkSetWindow(index int, newWindow *Window) (oldWindowEmptied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wl, ok := s.winlinks[index]
	if !ok {
		return false, errNoWinlink(index)
	}
	old := wl.Window
	wl.Window = newWindow
	newWindow.addRef()
	return old.releaseRef(), nil
}

// winlinkShuffleUp increments the index of every winlink at or above from by
// one, opening a gap at `from` for a new window (winlink_shuffle_up, used by
// `new-window -b` / `move-window -b`).
func (s *Session) winlinkShuffleUp(from int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toShift []int
	for idx := range s.winlinks {
		if idx >= from {
			toShift = append(toShift, idx)
		}
	}
	// shift from highest to lowest so no intermediate index collides.
	sortDesc(toShift)
	for _, idx := range toShift {
		wl := s.winlinks[idx]
		delete(s.winlinks, idx)
		s.order = removeSorted(s.order, idx)
		wl.Index = idx + 1
		s.winlinks[idx+1] = wl
		s.order = insertSorted(s.order, idx+1)
	}
}

func sortDesc(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] < xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// winlinkRemove deletes the winlink at index, returning whether the window
// it pointed to dropped to zero references.
func (s *Session) winlinkRemove(index int) (windowEmptied bool, window *Window, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wl, ok := s.winlinks[index]
	if !ok {
		return false, nil, errNoWinlink(index)
	}
	delete(s.winlinks, index)
	s.order = removeSorted(s.order, index)
	s.mruIndices = removeMRUInt(s.mruIndices, index)
	if s.currentIndex == index {
		s.currentIndex = -1
		for len(s.mruIndices) > 0 {
			cand := s.mruIndices[0]
			s.mruIndices = s.mruIndices[1:]
			if _, ok := s.winlinks[cand]; ok {
				s.currentIndex = cand
				break
			}
		}
		if s.currentIndex == -1 && len(s.order) > 0 {
			s.currentIndex = s.order[0]
		}
	}
	return wl.Window.releaseRef(), wl.Window, nil
}
