package propagation

import "errors"

var ErrBusClosed = errors.New("propagation: bus closed")
