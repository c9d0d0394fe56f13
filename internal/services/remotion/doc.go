// Package remotion wraps the Remotion command-line renderer.
//
// The CLI type discovers compositions and renders stills or videos by invoking
// `remotion compositions|still|render` (by default through npx). Input props
// are written to a temporary JSON file and passed with --props.
package remotion
