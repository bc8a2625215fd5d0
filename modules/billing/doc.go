// Package billing mounts the billing core's HTTP surface: the processor
// webhook endpoint, the usage snapshot, and the referral endpoints. Each
// service carries its own rate-limit policy; webhook traffic is keyed by
// source IP, user-facing endpoints by the authenticated user.
package billing
