package router

import "errors"

// Stack truncation errors.
var (
	ErrPopFailed     = errors.New("router: cannot pop a failed resolution")
	ErrPopLast       = errors.New("router: cannot pop the last entry")
	ErrPopOutOfRange = errors.New("router: pop index out of range")
	ErrPopUnknown    = errors.New("router: route is not on the stack")
)

// Pop removes the top entry. The returned resolution's Location is the
// prefix of the new top entry. Nothing is rebuilt.
func (res *Resolution) Pop() (*Resolution, error) {
	if !res.OK() {
		return nil, ErrPopFailed
	}
	return res.PopTo(len(res.Entries) - 1)
}

// PopTo removes the entry at index and every entry above it.
func (res *Resolution) PopTo(index int) (*Resolution, error) {
	if !res.OK() {
		return nil, ErrPopFailed
	}
	if index < 0 || index >= len(res.Entries) {
		return nil, ErrPopOutOfRange
	}
	if index == 0 {
		return nil, ErrPopLast
	}

	entries := make([]MatchEntry, index)
	copy(entries, res.Entries[:index])
	top := entries[index-1]

	return &Resolution{
		Requested: res.Requested,
		Location:  top.Prefix,
		Path:      top.Prefix,
		Query:     Params{},
		Entries:   entries,
	}, nil
}

// PopRoute removes the entry built for route and every entry above it.
// This is the pop notification a host sends when the user dismisses a page.
func (res *Resolution) PopRoute(route *Route) (*Resolution, error) {
	if !res.OK() {
		return nil, ErrPopFailed
	}
	for i := len(res.Entries) - 1; i >= 0; i-- {
		if res.Entries[i].Route == route {
			return res.PopTo(i)
		}
	}
	return nil, ErrPopUnknown
}

// CanPop reports whether the stack has an entry below the top.
func (res *Resolution) CanPop() bool {
	return res.OK() && len(res.Entries) > 1
}
