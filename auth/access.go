// Package auth decides which roles may run which operations and maps signed
// role tokens onto roles.
package auth

import (
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/pkg/errors"
)

// Controller checks operations against the fixed capability set of each
// role. The zero value is ready to use.
type Controller struct{}

func NewController() *Controller {
	return &Controller{}
}

// Check fails with core.ErrPermissionDenied when role may not run op.
func (c *Controller) Check(role core.Role, op core.Operation) error {
	if !role.Allows(op) {
		return errors.Wrapf(core.ErrPermissionDenied, "role %s may not %s", role, op)
	}
	return nil
}
