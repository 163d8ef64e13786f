// Package logging sets up TreasureBot's structured logging.
//
// Logs are JSON lines written to a size-rotated bot.log (by default under
// ~/.treasurebot/logs/) and, unless disabled, mirrored to stderr. Chat
// traffic is logged with a "[CHAT]" message prefix so it can be filtered
// with `treasurebot logs --chat`.
package logging
