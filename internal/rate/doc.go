// Package rate throttles failed logins with Redis counters.
//
// # Window semantics
//
// Fixed windows: a pipelined INCR per counter, with EXPIRE set on the first hit
// only. CheckLogin reads every counter in one MGET. Keys are
// "<prefix>:login:u:<identifier>" and "<prefix>:login:ip:<address>"; the
// identifier is lower-cased so an email and its capitalised form share a budget.
package rate
