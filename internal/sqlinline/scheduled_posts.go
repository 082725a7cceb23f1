package sqlinline

const QInsertScheduledPost = `--sql 72c7e6ee-e0f9-4599-bf72-c89c72af6e79
insert into scheduled_posts (id, workflow_id, owner_id, scheduled_at, status, platforms, metadata, created_at, updated_at)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::timestamptz, 'scheduled', $4::text[], $5::jsonb, now(), now())
returning id, created_at;
`

const QDeletePendingScheduledPosts = `--sql b53b101a-a853-4743-aa7a-d2df42779d71
delete from scheduled_posts
where workflow_id = $1::uuid
  and status = 'scheduled';
`

const QListScheduledPostsByWorkflow = `--sql b1498305-97a1-406a-8974-3ad688ab5243
select
    id,
    workflow_id,
    owner_id,
    scheduled_at,
    status,
    platforms,
    metadata,
    error_message,
    created_at
from scheduled_posts
where workflow_id = $1::uuid
order by scheduled_at asc
limit $2;
`

const QClaimDueScheduledPosts = `--sql cba9d8c1-9325-4fe5-b940-cd59bacff2b2
with due as (
    select id
    from scheduled_posts
    where status = 'scheduled'
      and scheduled_at <= $1::timestamptz
    order by scheduled_at asc
    for update skip locked
    limit $2
),
claimed as (
    update scheduled_posts p
    set status = 'processing', updated_at = now()
    from due
    where p.id = due.id
    returning p.id, p.workflow_id, p.owner_id, p.scheduled_at, p.status, p.platforms, p.metadata, p.error_message, p.created_at
)
select * from claimed
order by scheduled_at asc;
`

const QMarkScheduledPostResult = `--sql 95ff6801-a501-4eb6-b98f-ef14f27aa7de
update scheduled_posts
set status = $2::text,
    error_message = $3::text,
    updated_at = now()
where id = $1::uuid;
`
