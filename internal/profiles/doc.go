// Package profiles publishes the Fairspec JSON profile templates.
//
// A publish run produces one copy of the template tree per tag (the release
// version and "latest") under the output root. Each copy goes through three
// steps, in order:
//
//  1. clean   - remove outputRoot/<tag> (a missing directory is fine)
//  2. copy    - recursively copy the template tree to outputRoot/<tag>
//  3. rewrite - replace every placeholder token of the rule table in the
//     rule's target files with the tag-scoped absolute URL
//
// Placeholders are literal brace-delimited tokens such as {dataset-ref}.
// Substitution is textual so the surrounding JSON formatting is untouched.
//
// Runs are not atomic across tags: a failure leaves earlier tags published
// and the failing tag partially written. Re-running is always safe because
// every tag is rebuilt from scratch.
package profiles
