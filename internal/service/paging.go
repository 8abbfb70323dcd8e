package service

import "time"

// PageParams llega tal cual desde la capa de presentacion.
type PageParams struct {
	Cursor string
	Limit  int
}

type PageLimits struct {
	Default int
	Max     int
}

func (l PageLimits) clamp(limit int) int {
	def, max := l.Default, l.Max
	if def <= 0 {
		def = 20
	}
	if max <= 0 {
		max = 100
	}
	if def > max {
		def = max
	}
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	default:
		return limit
	}
}

// stamp es la resolucion que conserva Postgres.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
