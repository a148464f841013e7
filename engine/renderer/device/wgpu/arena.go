package wgpudev

import "github.com/cogentcore/webgpu/wgpu"

const (
	// uniformAlign is the default minUniformBufferOffsetAlignment limit.
	uniformAlign = 256

	arenaPageSize = 1 << 20
)

// arenaPage is one GPU uniform buffer and the CPU bytes written to it before the frame is submitted.
type arenaPage struct {
	buf     *wgpu.Buffer
	staging []byte
	used    int
}

// uniformArena hands out per-draw uniform slices. Every draw snapshots its constant buffers here,
// so updates between draws in one frame are seen in order even though the queue writes all
// pages once, just before submit.
type uniformArena struct {
	newPage func(size int) (*wgpu.Buffer, error)
	pages   []*arenaPage
	current int
}

// alloc copies data into a fresh aligned slice of size bytes. Bytes past len(data) are zero.
func (a *uniformArena) alloc(data []byte, size int) (*arenaPage, int, error) {
	for a.current < len(a.pages) {
		p := a.pages[a.current]
		offset := alignUp(p.used, uniformAlign)
		if offset+size <= len(p.staging) {
			p.used = offset + size
			region := p.staging[offset:p.used]
			clear(region[copy(region, data):])
			return p, offset, nil
		}
		a.current++
	}

	buf, err := a.newPage(max(size, arenaPageSize))
	if err != nil {
		return nil, 0, err
	}
	p := &arenaPage{buf: buf, staging: make([]byte, max(size, arenaPageSize))}
	a.pages = append(a.pages, p)
	p.used = size
	copy(p.staging[:size], data)
	return p, 0, nil
}

// flush hands the written part of every page to write.
func (a *uniformArena) flush(write func(buf *wgpu.Buffer, data []byte)) {
	for _, p := range a.pages {
		if p.used > 0 {
			write(p.buf, p.staging[:p.used])
		}
	}
}

// reset makes every page available again for the next frame.
func (a *uniformArena) reset() {
	for _, p := range a.pages {
		p.used = 0
	}
	a.current = 0
}

func (a *uniformArena) release() {
	for _, p := range a.pages {
		if p.buf != nil {
			p.buf.Release()
		}
	}
	a.pages = nil
	a.current = 0
}
