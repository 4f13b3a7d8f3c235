// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package substrate

const (
	getEntry = `
		SELECT value
		FROM entries
		WHERE key = $1;`

	upsertEntry = `
		INSERT INTO entries (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at;`

	deleteEntry = `
		DELETE FROM entries
		WHERE key = $1;`

	listKeysByPrefix = `
		SELECT key
		FROM entries
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY key;`
)
