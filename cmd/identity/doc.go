// Package identity holds the email-centric identity primitives of the microsite.
//
// There is no user table: an investor is identified by their canonical email, and
// the user id is a pure function of it (see DeriveUserID). Changing that requires an
// explicit mapping table with its own lifecycle.
package identity
