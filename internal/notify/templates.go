package notify

import "embed"

// Templates holds the bundled email templates under "templates/".
//
//go:embed templates/*.hbs
var Templates embed.FS
