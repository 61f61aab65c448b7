//go:build tools

package common

import (
	_ "github.com/dmarkham/enumer"
)
