// Package providers imports all source packages to trigger their init() registration.
package providers

import (
	_ "github.com/yuriy-kovalchuk/yk-bind-ddns/internal/source/docker"
)
