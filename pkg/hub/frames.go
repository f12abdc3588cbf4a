package hub

// Frames routes named JPEG streams to their hubs. It satisfies the
// tracker's frame sink.
type Frames struct {
	hubs map[string]*Hub
}

// NewFrames creates a router over the given hubs, keyed by hub name
func NewFrames(hubs ...*Hub) *Frames {
	f := &Frames{hubs: make(map[string]*Hub, len(hubs))}
	for _, h := range hubs {
		f.hubs[h.Name()] = h
	}
	return f
}

// PublishFrame broadcasts jpeg on the named stream when anyone is watching
func (f *Frames) PublishFrame(name string, jpeg []byte) {
	h, ok := f.hubs[name]
	if !ok || h.ClientCount() == 0 {
		return
	}
	h.BroadcastBinary(jpeg)
}

// Hub returns the hub for a stream name
func (f *Frames) Hub(name string) (*Hub, bool) {
	h, ok := f.hubs[name]
	return h, ok
}
