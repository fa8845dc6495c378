package session

import (
	"strings"

	"detailing-booking/internal/model"
)

// Guard decides where an admin route request should go. It returns "" when
// the request may proceed. While loading nothing is decided, which avoids
// redirect loops before the session resolves.
func Guard(admin *model.Admin, loading bool, pathname string) string {
	if loading {
		return ""
	}
	path := strings.TrimRight(pathname, "/")
	if path == "" {
		path = "/"
	}

	if path == LoginPath {
		if admin != nil {
			return DashboardPath
		}
		return ""
	}
	if strings.HasPrefix(path, LoginPath+"/") && admin == nil {
		return LoginPath
	}
	return ""
}
