package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
)

var errNotConfigured = errors.New("destination not configured")

// PublisherDeps wires the destination adapters.
type PublisherDeps struct {
	Site      ports.Site
	Channel   ports.Channel
	Formatter ports.ChannelFormatter
	Images    ports.ImageLoader
	Covers    ports.CoverFinder
	Logger    *slog.Logger
}

// Publisher pushes one article to the site and the channel independently.
type Publisher struct {
	site      ports.Site
	channel   ports.Channel
	formatter ports.ChannelFormatter
	images    ports.ImageLoader
	covers    ports.CoverFinder
	log       *slog.Logger
}

// NewPublisher constructs the multi-destination publisher.
func NewPublisher(deps PublisherDeps) *Publisher {
	return &Publisher{
		site:      deps.Site,
		channel:   deps.Channel,
		formatter: deps.Formatter,
		images:    deps.Images,
		covers:    deps.Covers,
		log:       logging.OrDiscard(deps.Logger).With("component", "publisher"),
	}
}

// PublishInput is one publish call. SourcePage is searched for a cover when
// the article carries no image URL.
type PublishInput struct {
	Article      domain.Article
	Destinations domain.DestinationSet
	SourcePage   string
}

// Publish runs the site phase then the channel phase. A failure in one phase
// never prevents the other; both results are returned.
func (p *Publisher) Publish(ctx context.Context, in PublishInput) domain.PublishOutcome {
	out := domain.PublishOutcome{
		Site:    domain.DestinationResult{Destination: domain.DestinationSite},
		Channel: domain.DestinationResult{Destination: domain.DestinationChannel},
	}

	if in.Destinations.Site {
		out.Site = p.publishSite(ctx, in, &out)
	}
	if in.Destinations.Channel {
		out.Channel = p.publishChannel(ctx, in.Article, &out)
	}
	return out
}

func (p *Publisher) publishSite(ctx context.Context, in PublishInput, out *domain.PublishOutcome) domain.DestinationResult {
	if p.site == nil {
		return domain.Failed(domain.DestinationSite, errNotConfigured)
	}

	out.MediaID = p.uploadCover(ctx, in)

	post, err := p.site.CreatePost(ctx, in.Article, out.MediaID)
	if err != nil {
		p.log.Error("site publish failed", "title", in.Article.Title, "error", err)
		return domain.Failed(domain.DestinationSite, &domain.DestinationError{
			Destination: domain.DestinationSite, Op: "create post", Cause: err,
		})
	}

	out.PostID = post.ID
	out.URL = post.URL
	p.log.Info("site post created", "post_id", post.ID, "url", post.URL)
	return domain.Succeeded(domain.DestinationSite)
}

// uploadCover returns the media id of the uploaded cover or 0; failures are only logged.
func (p *Publisher) uploadCover(ctx context.Context, in PublishInput) int64 {
	if p.images == nil {
		return 0
	}

	coverURL := in.Article.ImageURL
	if coverURL == "" && in.SourcePage != "" && p.covers != nil {
		found, err := p.covers.FindCover(ctx, in.SourcePage)
		if err != nil {
			p.log.Warn("cover lookup failed", "page", in.SourcePage, "error", err)
		}
		coverURL = found
	}
	if coverURL == "" {
		return 0
	}

	data, filename, err := p.images.Load(ctx, coverURL)
	if err != nil {
		p.log.Warn("cover download failed", "url", coverURL, "error", err)
		return 0
	}
	mediaID, err := p.site.UploadImage(ctx, data, filename)
	if err != nil {
		p.log.Warn("cover upload failed", "url", coverURL, "error", err)
		return 0
	}
	return mediaID
}

func (p *Publisher) publishChannel(ctx context.Context, article domain.Article, out *domain.PublishOutcome) domain.DestinationResult {
	if p.channel == nil || p.formatter == nil {
		return domain.Failed(domain.DestinationChannel, errNotConfigured)
	}

	text, err := p.formatter.Format(article.Content, out.URL)
	if err != nil {
		return domain.Failed(domain.DestinationChannel, &domain.DestinationError{
			Destination: domain.DestinationChannel, Op: "format message", Cause: err,
		})
	}

	id, err := p.channel.Send(ctx, text, false)
	if err != nil {
		p.log.Error("channel publish failed", "title", article.Title, "error", err)
		return domain.Failed(domain.DestinationChannel, &domain.DestinationError{
			Destination: domain.DestinationChannel, Op: "send message", Cause: err,
		})
	}

	out.MessageID = id
	p.log.Info("channel message sent", "message_id", id)
	return domain.Succeeded(domain.DestinationChannel)
}

// Retract deletes the record's publications at each destination holding a
// reference. Destinations without a reference are reported as not attempted.
func (p *Publisher) Retract(ctx context.Context, rec domain.PublishRecord) (site, channel domain.DestinationResult) {
	site = domain.DestinationResult{Destination: domain.DestinationSite}
	channel = domain.DestinationResult{Destination: domain.DestinationChannel}

	if rec.SitePostID != nil {
		site = p.retractSite(ctx, *rec.SitePostID)
	}
	if rec.ChannelMessageID != nil {
		channel = p.retractChannel(ctx, *rec.ChannelMessageID)
	}
	return site, channel
}

func (p *Publisher) retractSite(ctx context.Context, postID int64) domain.DestinationResult {
	if p.site == nil {
		return domain.Failed(domain.DestinationSite, errNotConfigured)
	}
	ok, err := p.site.DeletePost(ctx, postID)
	if err == nil && !ok {
		err = fmt.Errorf("post %d was not deleted", postID)
	}
	if err != nil {
		return domain.Failed(domain.DestinationSite, &domain.DestinationError{
			Destination: domain.DestinationSite, Op: "delete post", Cause: err,
		})
	}
	return domain.Succeeded(domain.DestinationSite)
}

func (p *Publisher) retractChannel(ctx context.Context, messageID int64) domain.DestinationResult {
	if p.channel == nil {
		return domain.Failed(domain.DestinationChannel, errNotConfigured)
	}
	if err := p.channel.Delete(ctx, messageID); err != nil {
		return domain.Failed(domain.DestinationChannel, &domain.DestinationError{
			Destination: domain.DestinationChannel, Op: "delete message", Cause: err,
		})
	}
	return domain.Succeeded(domain.DestinationChannel)
}
