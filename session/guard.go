package session

// Route paths used by Guard redirects
const (
	SignInPath = "/signin"
	HomePath   = "/"
)

// Verdict is the outcome of a protected-route check
type Verdict int

const (
	// Wait means an operation is in flight; show a loading state.
	Wait Verdict = iota
	// Allow renders the requested page.
	Allow
	// RedirectSignIn sends an anonymous user to sign in, remembering From.
	RedirectSignIn
	// RedirectHome sends an authenticated user off an auth-only page.
	RedirectHome
)

func (v Verdict) String() string {
	switch v {
	case Wait:
		return "wait"
	case Allow:
		return "allow"
	case RedirectSignIn:
		return "redirect-signin"
	case RedirectHome:
		return "redirect-home"
	}
	return "unknown"
}

// Decision carries the verdict and, for redirects, the target path. From is the
// page to return to after signing in.
type Decision struct {
	Verdict Verdict
	Target  string
	From    string
}

// Guard decides what to do with a navigation to from. Pages that need a user
// pass requireAuth; auth pages (sign in, sign up) pass false so signed-in users
// are sent back to where they came from.
func (s State) Guard(requireAuth bool, from string) Decision {
	switch {
	case s.IsLoading:
		return Decision{Verdict: Wait}
	case requireAuth && !s.IsAuthenticated:
		return Decision{Verdict: RedirectSignIn, Target: SignInPath, From: from}
	case !requireAuth && s.IsAuthenticated:
		target := from
		if target == "" {
			target = HomePath
		}
		return Decision{Verdict: RedirectHome, Target: target}
	}
	return Decision{Verdict: Allow}
}
