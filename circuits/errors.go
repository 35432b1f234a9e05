package circuits

import "errors"

var errNoCommitter = errors.New("builder does not support commitments")
