package workflow

import "github.com/go-playground/validator/v10"

var validatorUtil = validator.New(validator.WithRequiredStructEnabled())
