package shell

import "errors"

var (
	errNoCupboard = errors.New("no cupboard open, run .open <dir> first")
	errTxnActive  = errors.New("transaction already active")
	errNoTxn      = errors.New("no active transaction")
)
