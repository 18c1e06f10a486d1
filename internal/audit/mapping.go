package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// Membership route overrides: audit as invitation_accepted, role_changed,
// user_removed on resource "membership" instead of generic verbs.
const (
	routeAcceptInvitation = "POST /v1/invitations/accept"
	routeChangeRole       = "PUT /v1/orgs/{orgID}/members/{userID}/role"
	routeRemoveMember     = "DELETE /v1/orgs/{orgID}/members/{userID}"
)

// ParseRoute returns action and resource for an HTTP method and route
// pattern (e.g. GET /v1/orgs/{orgID}/members). Action is a verb: get, list,
// create, update, delete. Resource is the last literal path segment,
// singularized (members -> member). Membership lifecycle routes map to
// invitation_accepted, role_changed, user_removed on resource "membership".
func ParseRoute(method, pattern string) ActionResource {
	// http.Request.Pattern carries the method prefix when the route was
	// registered with one.
	if _, rest, ok := strings.Cut(pattern, " "); ok {
		pattern = rest
	}

	switch method + " " + pattern {
	case routeAcceptInvitation:
		return ActionResource{Action: "invitation_accepted", Resource: "membership"}
	case routeChangeRole:
		return ActionResource{Action: "role_changed", Resource: "membership"}
	case routeRemoveMember:
		return ActionResource{Action: "user_removed", Resource: "membership"}
	}

	resource := "unknown"
	endsInParam := false
	for _, seg := range strings.Split(pattern, "/") {
		switch {
		case seg == "" || seg == "v1":
		case strings.HasPrefix(seg, "{"):
			endsInParam = true
		default:
			resource = singularize(seg)
			endsInParam = false
		}
	}

	action := "unknown"
	switch method {
	case "GET":
		// A collection route lists; a route ending in an id gets.
		if endsInParam {
			action = "get"
		} else {
			action = "list"
		}
	case "POST":
		action = "create"
	case "PUT", "PATCH":
		action = "update"
	case "DELETE":
		action = "delete"
	}
	return ActionResource{Action: action, Resource: resource}
}

func singularize(s string) string {
	if strings.HasSuffix(s, "s") && len(s) > 1 {
		return s[:len(s)-1]
	}
	return s
}
