package model

import "fmt"

// CredentialFunc reports whether credentials are available for a
// provider (config.ProviderCredential != "" in practice).
type CredentialFunc func(provider string) bool

// GenerateFunc performs one generation attempt against id and
// returns the produced text (or an error). Resolve treats an empty
// string with a nil error as a failed attempt too: it keeps iterating
// candidates in order until one both has credentials and produces
// non-empty output.
type GenerateFunc func(id ID) (string, error)

// Resolution is the outcome of walking a candidate list.
type Resolution struct {
	Chosen ID
	Text   string
	Tried  []ID
}

// Resolve walks candidates in order, skipping any without
// credentials, and returns the first one that both has credentials
// and produces non-empty output. If every candidate fails, it
// returns the most informative error: the last real (non-credential)
// error seen, or a missing-credentials error if none ever had
// credentials, with a "run refresh-free" hint appended when preset
// is the built-in "free" alias.
func Resolve(candidates []ID, preset string, hasCreds CredentialFunc, generate GenerateFunc) (Resolution, error) {
	if len(candidates) == 0 {
		return Resolution{}, hintFreeRefresh(fmt.Errorf("model: no candidates to try"), preset)
	}

	var lastErr error
	var sawCredentialed bool
	tried := make([]ID, 0, len(candidates))

	for _, id := range candidates {
		if !hasCreds(id.Provider) {
			if lastErr == nil {
				lastErr = fmt.Errorf("model: no credentials configured for provider %q", id.Provider)
			}
			continue
		}
		sawCredentialed = true
		tried = append(tried, id)

		text, err := generate(id)
		if err != nil {
			lastErr = fmt.Errorf("model %s: %w", id.String(), err)
			continue
		}
		if text == "" {
			lastErr = fmt.Errorf("model %s: produced empty output", id.String())
			continue
		}
		return Resolution{Chosen: id, Text: text, Tried: tried}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("model: all candidates failed")
	}
	if !sawCredentialed {
		lastErr = fmt.Errorf("model: no configured provider among candidates: %w", lastErr)
	}
	return Resolution{Tried: tried}, hintFreeRefresh(lastErr, preset)
}

func hintFreeRefresh(err error, preset string) error {
	if preset != "free" {
		return err
	}
	return fmt.Errorf("%w (run `refresh-free` to repopulate the free-model candidate list)", err)
}
