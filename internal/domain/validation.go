package domain

import "github.com/go-playground/validator/v10"

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = validator.New()
