package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "shop-auth/pkg/errors"
)

// Credentials and tokens are small; anything bigger is not a request we serve.
const maxJSONBodyBytes int64 = 64 << 10

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(c echo.Context, dst any) error {
	mediaType, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if err != nil || mediaType != echo.MIMEApplicationJSON {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, msgContentTypeJSONRequired)
	}

	decoder := json.NewDecoder(io.LimitReader(c.Request().Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.BadRequest(msgInvalidRequestBody)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperrors.BadRequest(msgInvalidRequestBody)
	}
	return nil
}

func bindAndValidate(c echo.Context, dst any) error {
	if err := decodeJSON(c, dst); err != nil {
		return err
	}
	return c.Validate(dst)
}
