package facebook

import (
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

func init() {
	reviewprovider.Register(review.PlatformFacebook, func(config map[string]string) (reviewprovider.Provider, error) {
		return New(Config{
			ClientID:     config[reviewprovider.ConfigClientID],
			ClientSecret: config[reviewprovider.ConfigClientSecret],
			RedirectURL:  config[reviewprovider.ConfigRedirectURL],
			BaseURL:      config[reviewprovider.ConfigBaseURL],
		}), nil
	})
}
