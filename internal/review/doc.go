// Package review implements spaced-repetition scheduling for financial
// learning concepts using a modified SM-2 algorithm.
//
// Scheduling is a pure transform: Schedule takes an Item, a Response and a
// timestamp and returns the updated Item without mutating its input or
// touching any hidden state. On top of the classic SM-2 ease-factor and
// interval math, intervals are weighted by a domain importance multiplier
// (high-stakes concepts come back sooner), the learner's self-reported
// confidence, and a time-spent penalty against per-category averages.
//
// The prioritizer selects and ranks the concepts due for review and derives
// retention statistics and a session recommendation. It only reads item
// state; hosts are responsible for persisting their Item collections and for
// serializing concurrent writes to a given item.
package review
