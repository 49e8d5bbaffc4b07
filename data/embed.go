// Package data embeds the default stopword lists.
package data

import "embed"

// Stopwords holds stopwords/stopwords.<iso>.txt for every default language.
//
//go:embed stopwords/*.txt
var Stopwords embed.FS
