// Package referral manages referral codes and the discount state their
// redemption creates.
//
// Each user owns at most one code, an 8-character string minted from an
// alphabet without look-alike symbols, carrying a fixed number of uses.
// Redeeming a code grants the new user a discounted period, measured in
// referral months, and credits the owner a bonus month. A user can redeem
// at most one code ever, enforced by a uniqueness constraint rather than
// an application-level check, so concurrent redemptions serialize in the
// store.
//
// Referral months tick down on each paid invoice. When the counter
// crosses zero the billing handlers switch the subscription back to the
// standard rate.
package referral
