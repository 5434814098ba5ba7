// Package engine owns the authoritative auction state for one room.
//
// Each Engine is the single writer for its room's round state: the periodic
// tick and every bid are serialized through one mutex scoped to the room, so
// rooms never contend with each other. All state that leaves the engine is
// an immutable snapshot taken under that serialization point.
//
// Ledger calls (the bid debit, payout and refund credits) happen off the
// engine's lock so a slow database round-trip can never stall the tick or
// other rooms.
package engine
