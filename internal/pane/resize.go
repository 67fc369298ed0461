package pane

import "time"

// Resize requests a size change. Resizes are coalesced: a burst of calls
// within resizeDelay collapses into a single TIOCSWINSZ and a single
// screen reflow using only the last requested size.
func (p *Pane) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusDestroyed {
		return
	}
	p.resizeCols, p.resizeRows = cols, rows
	if p.resizePending {
		return
	}
	p.resizePending = true
	if p.resizeTimer != nil {
		p.resizeTimer.Stop()
	}
	p.resizeTimer = time.AfterFunc(p.resizeDelay, p.applyResize)
}

func (p *Pane) applyResize() {
	p.mu.Lock()
	cols, rows := p.resizeCols, p.resizeRows
	p.resizePending = false
	if p.status == StatusDestroyed {
		p.mu.Unlock()
		return
	}
	p.cols, p.rows = cols, rows
	p.screen.Resize(cols, rows)
	term := p.term
	p.mu.Unlock()

	_ = term.Resize(cols, rows)
}
