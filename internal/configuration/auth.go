package configuration

type AuthRule struct {
	Path        string
	Method      string // "*" means all methods
	RequireAuth bool   // true means require auth, false means exclude from auth
}

var AuthRulePrefixMatchPath = []AuthRule{
	{Path: "/api/v1/auth", Method: "*", RequireAuth: false},
	{Path: "/api/v1/mfa", Method: "*", RequireAuth: true},
	{Path: "/api/v1/positions", Method: "*", RequireAuth: true},
	{Path: "/api/v1/activity", Method: "*", RequireAuth: true},
	{Path: "/api/v1/admin", Method: "*", RequireAuth: true},
	{Path: "/functions/v1", Method: "*", RequireAuth: true},
}

var AuthRuleExactMatchPath = map[string][]AuthRule{
	"/api/v1/auth/me": {
		{Path: "/api/v1/auth/me", Method: "GET", RequireAuth: true},
	},
}
