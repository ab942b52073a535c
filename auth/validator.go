package auth

import (
	"fmt"

	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateIdentity(identity domain.Identity) error {
	if err := validate.Struct(identity); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidIdentity, err)
	}
	return nil
}
