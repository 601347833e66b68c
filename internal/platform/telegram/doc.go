// Package telegram adapts the bot transport for the engine. It reduces
// webhook updates to Inbound interactions, delivers outbound text, and
// downloads voice notes for transcription.
//
// The engine never imports this package's client directly; consuming
// packages declare the Send and DownloadVoice signatures they need and the
// Client satisfies them. ParseUpdate is the only transport-to-core
// translation point, so Telegram types stop at the webhook handler.
package telegram
