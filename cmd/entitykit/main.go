/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command entitykit inspects entity type registrations and index maps, and
// reads entities from DynamoDB.
package main

import (
	"os"

	"github.com/suparena/entitykit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
