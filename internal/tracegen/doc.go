// Package tracegen writes synthetic traces into a trace store.
//
// Event i occupies the time slot [10*i, 10*i+9]: States fill the whole slot, Instants and Variables
// sit on its start and Links start there and may reach up to MaxLinkSpan into later slots.
// The category of each slot is drawn from a seeded generator, so the same settings always
// produce the same trace apart from its identifier.
package tracegen
