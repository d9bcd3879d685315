// Package sesam implements credential and session lifecycle management:
// JWT access/refresh pairs, single-use verification and password-reset
// tickets, and the HTTP plumbing that moves tokens through cookies.
//
// Token rotation:
//   - TokenService issues an access/refresh pair and rotates it on demand.
//     The rotation policy is fixed at construction time. Sliding rotation
//     renews the refresh window on every rotation; bounded rotation pins
//     the window to the moment the family was first issued, so a session
//     can never outlive the configured refresh TTL.
//
// Credential tickets:
//   - Verification and password-reset tickets are random single-use tokens
//     stored next to the user row. Consumption is a conditional UPDATE that
//     checks expiry and clears the ticket in the same statement, so a token
//     can be redeemed at most once even under concurrent requests.
//
// Transport:
//   - CookieTransport writes both tokens as HTTP-only cookies and reads them
//     back, falling back to the Authorization header for API clients. The
//     AuthController wires the command handlers and the Auther into a
//     conventional register/login/verify/forgot/reset/refresh route set.
package sesam
