package workhours

import "errors"

var (
	ErrInvalidConfig = errors.New("workhours: invalid config")
	ErrInvalidPeriod = errors.New("workhours: invalid period")
)
