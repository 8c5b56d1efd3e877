// Package broadcast runs the periodic broadcast cycle: cooldown check,
// concurrent multi-source fetch, selection of the newest unseen article,
// fan-out delivery to every registered recipient, and a final commit of
// the dedup/cooldown/registry state.
//
// A cycle that fetches nothing, or fetches nothing new, ends quietly and
// does NOT consume the cooldown window — the hourly limit throttles
// successful deliveries only, so the external trigger can poll every few
// minutes without violating the at-most-one-per-hour guarantee.
package broadcast
