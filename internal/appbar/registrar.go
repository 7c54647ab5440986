// Package appbar registers hidden bar surfaces with the shell's edge
// negotiation protocol and keeps their claims current.
package appbar

import (
	"log/slog"
	"sort"

	"github.com/1broseidon/deskshell/internal/geometry"
	"github.com/1broseidon/deskshell/internal/platform"
)

// BarHandle is one registered bar. At most one exists per edge.
type BarHandle struct {
	Edge       platform.Edge
	Surface    platform.SurfaceID
	Registered bool
	// Size is the last thickness successfully applied, in device pixels.
	Size int
	// Rect is the last rectangle committed with the shell.
	Rect platform.Rect
}

// MonitorFunc returns the current rectangles of the owning monitor.
type MonitorFunc func() geometry.MonitorRects

// Registrar owns the BarHandles. It is not safe for concurrent use; callers
// drive it from a single loop.
type Registrar struct {
	proto   platform.BarProtocol
	monitor MonitorFunc
	logger  *slog.Logger
	bars    map[platform.Edge]*BarHandle
}

// NewRegistrar creates a registrar. A nil logger uses slog.Default.
func NewRegistrar(proto platform.BarProtocol, monitor MonitorFunc, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		proto:   proto,
		monitor: monitor,
		logger:  logger,
		bars:    make(map[platform.Edge]*BarHandle),
	}
}

// EnsureOrUpdate claims size pixels on edge. A size of zero or less removes
// the bar. Failures are logged and leave the handle in its prior state so
// the next call retries.
func (r *Registrar) EnsureOrUpdate(edge platform.Edge, size int) {
	if size <= 0 {
		r.Remove(edge)
		return
	}

	h, ok := r.bars[edge]
	if !ok {
		id, err := r.proto.CreateBarSurface(edge)
		if err != nil {
			r.logger.Warn("appbar: create surface failed", "edge", edge, "error", err)
			return
		}
		h = &BarHandle{Edge: edge, Surface: id}
		r.bars[edge] = h
		r.logger.Debug("appbar: surface created", "edge", edge, "surface", id)
	}

	if !h.Registered {
		if err := r.proto.RegisterBar(h.Surface); err != nil {
			r.logger.Warn("appbar: register failed", "edge", edge, "error", err)
			return
		}
		h.Registered = true
	}

	if h.Size == size {
		return
	}
	r.apply(h, size, true)
}

// HandlePositionChanged re-runs negotiation for the bar on surface, or for
// every bar when surface is zero. Each bar is reapplied from its last size;
// the notification payload is not trusted.
func (r *Registrar) HandlePositionChanged(surface platform.SurfaceID) {
	for _, h := range r.sorted() {
		if surface != 0 && h.Surface != surface {
			continue
		}
		if !h.Registered || h.Size <= 0 {
			continue
		}
		r.apply(h, h.Size, false)
	}
}

// Invalidate marks every bar unregistered and unsized while keeping its
// surface, so the next EnsureOrUpdate registers and positions it again.
// Used after the shell dropped all bars.
func (r *Registrar) Invalidate() {
	for _, h := range r.bars {
		h.Registered = false
		h.Size = 0
		h.Rect = platform.Rect{}
	}
}

// Remove withdraws and disposes the bar on edge. Teardown is best effort;
// the handle is dropped even when the shell refuses.
func (r *Registrar) Remove(edge platform.Edge) {
	h, ok := r.bars[edge]
	if !ok {
		return
	}
	delete(r.bars, edge)

	if h.Registered {
		if err := r.proto.RemoveBar(h.Surface); err != nil {
			r.logger.Warn("appbar: remove failed", "edge", edge, "error", err)
		}
	}
	if err := r.proto.DestroyBarSurface(h.Surface); err != nil {
		r.logger.Warn("appbar: destroy surface failed", "edge", edge, "error", err)
	}
	r.logger.Info("appbar: released", "edge", edge, "size", h.Size)
}

// RemoveAll removes every bar.
func (r *Registrar) RemoveAll() {
	for _, h := range r.sorted() {
		r.Remove(h.Edge)
	}
}

// Handle returns a copy of the bar on edge.
func (r *Registrar) Handle(edge platform.Edge) (BarHandle, bool) {
	h, ok := r.bars[edge]
	if !ok {
		return BarHandle{}, false
	}
	return *h, true
}

// Handles returns copies of all bars ordered by edge.
func (r *Registrar) Handles() []BarHandle {
	out := make([]BarHandle, 0, len(r.bars))
	for _, h := range r.sorted() {
		out = append(out, *h)
	}
	return out
}

// Held reports whether any bar exists.
func (r *Registrar) Held() bool {
	return len(r.bars) > 0
}

// Size returns the applied size on edge, or zero.
func (r *Registrar) Size(edge platform.Edge) int {
	if h, ok := r.bars[edge]; ok {
		return h.Size
	}
	return 0
}

func (r *Registrar) sorted() []*BarHandle {
	out := make([]*BarHandle, 0, len(r.bars))
	for _, h := range r.bars {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Edge < out[j].Edge })
	return out
}

// apply negotiates and commits a rectangle of the given thickness. When force
// is false the commit is skipped if the negotiated rectangle is unchanged,
// which keeps renotifications from feeding back into themselves.
func (r *Registrar) apply(h *BarHandle, size int, force bool) {
	mr := r.monitor()
	if mr.Full.Empty() {
		r.logger.Debug("appbar: no monitor geometry", "edge", h.Edge)
		return
	}

	proposed := proposal(h.Edge, mr, size)
	negotiated, err := r.proto.QueryBarPos(h.Surface, h.Edge, proposed)
	if err != nil {
		r.logger.Warn("appbar: query position failed", "edge", h.Edge, "error", err)
		return
	}
	negotiated = withThickness(h.Edge, negotiated, size)
	if negotiated.Empty() {
		r.logger.Warn("appbar: shell returned unusable rect", "edge", h.Edge, "rect", negotiated.String())
		return
	}
	if !force && negotiated == h.Rect && size == h.Size {
		return
	}

	committed, err := r.proto.SetBarPos(h.Surface, h.Edge, negotiated)
	if err != nil {
		r.logger.Warn("appbar: set position failed", "edge", h.Edge, "error", err)
		return
	}
	committed = withThickness(h.Edge, committed, size)

	if err := r.proto.BarWindowPosChanged(h.Surface); err != nil {
		r.logger.Debug("appbar: position-changed notify failed", "edge", h.Edge, "error", err)
	}
	if err := r.proto.ActivateBar(h.Surface); err != nil {
		r.logger.Debug("appbar: activate failed", "edge", h.Edge, "error", err)
	}

	h.Size = size
	h.Rect = committed
	r.logger.Info("appbar: claim applied", "edge", h.Edge, "size", size, "rect", committed.String())
}

func proposal(edge platform.Edge, mr geometry.MonitorRects, size int) platform.Rect {
	switch edge {
	case platform.EdgeTop:
		return platform.RectFromEdges(mr.Full.Left(), mr.Full.Top(), mr.Full.Right(), mr.Full.Top()+size)
	default:
		return platform.RectFromEdges(mr.Full.Left(), mr.Work.Top(), mr.Full.Left()+size, mr.Work.Bottom())
	}
}

// withThickness keeps the shell's position and forces the caller's thickness.
func withThickness(edge platform.Edge, r platform.Rect, size int) platform.Rect {
	switch edge {
	case platform.EdgeTop:
		r.Height = size
	default:
		r.Width = size
	}
	return r
}
