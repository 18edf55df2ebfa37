package store

import "github.com/witlox/dcron/l3"

var logger = l3.Get()
