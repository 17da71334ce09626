package compositor

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

type blendCall struct {
	src, dst Handle
	at       Rect
}

type fakeServer struct {
	// mu guards the state touched by Run-driven tests: picture creation
	// and blending.
	mu sync.Mutex

	windows    map[WindowID]Attributes
	pictureErr map[WindowID]error
	blendErr   map[Handle]error
	overlayErr error

	attempts map[WindowID]int
	next     Handle
	live     map[Handle]WindowID
	overlays int
	blends   []blendCall
	fills    []Rect
	acks     []Handle
	flushes  int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		windows:    make(map[WindowID]Attributes),
		pictureErr: make(map[WindowID]error),
		blendErr:   make(map[Handle]error),
		live:       make(map[Handle]WindowID),
		attempts:   make(map[WindowID]int),
	}
}

func (s *fakeServer) addWindow(id WindowID, v Visibility, g Geometry) {
	s.windows[id] = Attributes{Geometry: g, Visibility: v, Visual: 0x21}
}

func (s *fakeServer) alloc(owner WindowID) Handle {
	s.next++
	s.live[s.next] = owner
	return s.next
}

func (s *fakeServer) QueryWindow(id WindowID) (Attributes, error) {
	attrs, ok := s.windows[id]
	if !ok {
		return Attributes{}, errors.New("BadWindow")
	}
	return attrs, nil
}

func (s *fakeServer) CreateWindowPicture(id WindowID, attrs Attributes) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[id]++
	if err := s.pictureErr[id]; err != nil {
		return NoHandle, err
	}
	return s.alloc(id), nil
}

func (s *fakeServer) ReleasePicture(h Handle) {
	delete(s.live, h)
}

func (s *fakeServer) WatchDamage(id WindowID) (Handle, error) {
	return s.alloc(id), nil
}

func (s *fakeServer) UnwatchDamage(h Handle) {
	delete(s.live, h)
}

func (s *fakeServer) AcknowledgeDamage(h Handle) {
	s.acks = append(s.acks, h)
}

func (s *fakeServer) CreateOverlayPicture() (Handle, error) {
	if s.overlayErr != nil {
		return NoHandle, s.overlayErr
	}
	s.overlays++
	return s.alloc(0), nil
}

func (s *fakeServer) ScreenBounds() Rect {
	return Rect{Width: 1920, Height: 1080}
}

func (s *fakeServer) Blend(src, dst Handle, at Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.blendErr[src]; err != nil {
		return err
	}
	s.blends = append(s.blends, blendCall{src: src, dst: dst, at: at})
	return nil
}

func (s *fakeServer) Fill(dst Handle, area Rect, c Color) error {
	s.fills = append(s.fills, area)
	return nil
}

func (s *fakeServer) Flush() {
	s.flushes++
}

// blendsOf counts blends whose source is w's current picture.
func (s *fakeServer) blendsOf(w *Window) int {
	n := 0
	for _, b := range s.blends {
		if b.src == w.Picture() {
			n++
		}
	}
	return n
}

func (s *fakeServer) setPictureErr(id WindowID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.pictureErr, id)
		return
	}
	s.pictureErr[id] = err
}

func (s *fakeServer) pictureAttempts(id WindowID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

// paintsOf counts blends of any picture that belonged to id.
func (s *fakeServer) paintsOf(id WindowID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.blends {
		if owner, ok := s.live[b.src]; ok && owner == id {
			n++
		}
	}
	return n
}

func (s *fakeServer) reset() {
	s.blends = nil
	s.fills = nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStop struct {
	raised atomic.Bool
	ch     chan struct{}
}

func newFakeStop() *fakeStop {
	return &fakeStop{ch: make(chan struct{})}
}

func (s *fakeStop) Raised() bool          { return s.raised.Load() }
func (s *fakeStop) Done() <-chan struct{} { return s.ch }

func (s *fakeStop) raise() {
	s.raised.Store(true)
	close(s.ch)
}
