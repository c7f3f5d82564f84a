package signup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Decision est le verdict rendu pour une tentative d'inscription.
type Decision struct {
	Denied bool
	Reason string
}

// Protector filtre les inscriptions : domaines d'email jetables et
// limitation par IP (compteur fenêtré dans Redis, avec un limiteur en
// mémoire pour absorber les rafales avant même de toucher Redis).
type Protector struct {
	redis    *redis.Client
	maxPerIP int
	window   time.Duration
	burst    *rate.Limiter
	denylist map[string]struct{}
}

// Domaines jetables les plus fréquents. La liste est volontairement courte :
// le service tiers historique en maintenait une exhaustive, ici on retient
// un filtre de premier niveau.
var disposableDomains = []string{
	"mailinator.com",
	"yopmail.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"temp-mail.org",
	"throwawaymail.com",
	"getnada.com",
	"trashmail.com",
}

// NewProtector crée le filtre d'inscription.
func NewProtector(redisClient *redis.Client, maxPerIP int, window time.Duration) *Protector {
	denylist := make(map[string]struct{}, len(disposableDomains))
	for _, d := range disposableDomains {
		denylist[d] = struct{}{}
	}
	return &Protector{
		redis:    redisClient,
		maxPerIP: maxPerIP,
		window:   window,
		burst:    rate.NewLimiter(rate.Every(time.Second), 10),
		denylist: denylist,
	}
}

// Check rend un verdict pour le couple (IP, email). Une erreur Redis ne
// bloque pas l'inscription : le filtre dégrade en laissant passer, la
// protection est un confort, pas une garantie de sécurité.
func (p *Protector) Check(ctx context.Context, ip, email string) Decision {
	if domain := emailDomain(email); domain != "" {
		if _, ok := p.denylist[domain]; ok {
			return Decision{Denied: true, Reason: "adresse email jetable refusée"}
		}
	}

	if !p.burst.Allow() {
		return Decision{Denied: true, Reason: "trop de tentatives, réessayez plus tard"}
	}

	if p.maxPerIP > 0 && strings.TrimSpace(ip) != "" {
		key := fmt.Sprintf("signup:ip:%s", ip)
		count, err := p.redis.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("compteur d'inscriptions indisponible")
			return Decision{}
		}
		if count == 1 {
			_ = p.redis.Expire(ctx, key, p.window).Err()
		}
		if count > int64(p.maxPerIP) {
			return Decision{Denied: true, Reason: "trop d'inscriptions depuis cette adresse"}
		}
	}

	return Decision{}
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
