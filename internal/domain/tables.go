package domain

var Tables = []interface{}{
	// System
	&OprLog{},
}
