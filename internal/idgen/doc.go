// Package idgen generates and resolves work-item identifiers of the form
// "bn-<body>": a short, adaptive-length, collision-resistant base36 body
// derived deterministically from an item's title, description, and a
// nonce, escalating through four tiers if the candidate collides with an
// existing ID. Child IDs ("parent.n") are computed on demand and never
// allocated through this package.
package idgen
